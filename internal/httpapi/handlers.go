package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/encountergrid/backend/internal/catalog"
)

// Monsters serves the cached compendium list for the board's dropdown.
func Monsters(cat *catalog.Client, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		monsters, err := cat.Monsters(r.Context())
		if err != nil {
			log.Error("monster catalog lookup failed", zap.Error(err))
			http.Error(w, "catalog unavailable", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(monsters)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
