package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/hub"
	"github.com/meDataEngLearner/rock-paper-scissors-multiplayer/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/sessions", NewSessionCode(h))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}
