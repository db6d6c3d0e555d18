package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/matchday-backend/internal/auth"
	"github.com/DoyleJ11/matchday-backend/internal/gateway"
	"github.com/DoyleJ11/matchday-backend/internal/match"
	"github.com/DoyleJ11/matchday-backend/internal/store"
	"github.com/DoyleJ11/matchday-backend/pkg/types"
)

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return after
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "match not found", http.StatusNotFound)
	case errors.Is(err, match.ErrUnknownSide),
		errors.Is(err, match.ErrUnknownStatus),
		errors.Is(err, match.ErrUnknownColor),
		errors.Is(err, gateway.ErrInvalidMatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

// GetMatch serves a client's full snapshot load.
func GetMatch(gw *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := gw.FetchSnapshot(r.Context(), bearerToken(r), chi.URLParam(r, "matchID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func IncrementScore(gw *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Team types.Side `json:"team"`
		}
		if !decode(w, r, &body) {
			return
		}
		snap, err := gw.IncrementScore(r.Context(), bearerToken(r), chi.URLParam(r, "matchID"), body.Team)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func SetStatus(gw *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status types.Status `json:"status"`
		}
		if !decode(w, r, &body) {
			return
		}
		snap, err := gw.SetStatus(r.Context(), bearerToken(r), chi.URLParam(r, "matchID"), body.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func IncrementCard(gw *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Color types.CardColor `json:"color"`
		}
		if !decode(w, r, &body) {
			return
		}
		snap, err := gw.IncrementCard(r.Context(), bearerToken(r), chi.URLParam(r, "matchID"), body.Color)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// RegisterMatch is called by the tournament-config system when a match is
// scheduled.
func RegisterMatch(gw *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snap types.Snapshot
		if !decode(w, r, &snap) {
			return
		}
		current, err := gw.RegisterMatch(r.Context(), bearerToken(r), snap)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, current)
	}
}

func RemoveMatch(gw *gateway.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := gw.RemoveMatch(r.Context(), bearerToken(r), chi.URLParam(r, "matchID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
