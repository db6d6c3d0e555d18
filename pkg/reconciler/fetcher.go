package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

var defaultClient = &http.Client{Timeout: 10 * time.Second}

// HTTPFetcher loads full snapshots from the server's REST surface.
type HTTPFetcher struct {
	BaseURL string
	Token   string

	// Client defaults to a shared client with a 10s timeout, which bounds
	// every individual load attempt.
	Client *http.Client
}

func (f *HTTPFetcher) FetchSnapshot(ctx context.Context, matchID string) (types.Snapshot, error) {
	httpc := f.Client
	if httpc == nil {
		httpc = defaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/matches/"+url.PathEscape(matchID), nil)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.Token)

	resp, err := httpc.Do(req)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return types.Snapshot{}, ErrNotFound
	default:
		return types.Snapshot{}, fmt.Errorf("fetch snapshot: unexpected status %d", resp.StatusCode)
	}

	var snap types.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return types.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
