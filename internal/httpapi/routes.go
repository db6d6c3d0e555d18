package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/DoyleJ11/matchday-backend/internal/gateway"
	"github.com/DoyleJ11/matchday-backend/internal/hub"
	"github.com/DoyleJ11/matchday-backend/internal/ws"
)

func SetupRoutes(gw *gateway.Gateway, h *hub.Hub, log *zap.Logger, writeTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.Handler(gw, h, log, writeTimeout))

	r.Route("/matches", func(r chi.Router) {
		r.Post("/", RegisterMatch(gw))
		r.Get("/{matchID}", GetMatch(gw))
		r.Delete("/{matchID}", RemoveMatch(gw))
		r.Post("/{matchID}/score", IncrementScore(gw))
		r.Post("/{matchID}/status", SetStatus(gw))
		r.Post("/{matchID}/cards", IncrementCard(gw))
	})
	return r
}
