package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/encountergrid/backend/internal/catalog"
	"github.com/encountergrid/backend/internal/registry"
	"github.com/encountergrid/backend/internal/ws"
)

func SetupRoutes(reg *registry.Registry, cat *catalog.Client, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/ws", ws.Handler(reg, log))
	r.Get("/monsters", Monsters(cat, log))
	r.Get("/healthz", Healthz)
	return r
}
