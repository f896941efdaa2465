package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/compass-engine/pkg/storage"
)

// WorldsHandler lists the bundled world files.
type WorldsHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewWorldsHandler(logger *slog.Logger, storage storage.Storage) *WorldsHandler {
	return &WorldsHandler{storage: storage, logger: logger}
}

// ServeHTTP handles GET /v1/worlds, returning world name → filename.
func (h *WorldsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed for worlds endpoint", "method", r.Method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	worlds, err := h.storage.ListWorlds(r.Context())
	if err != nil {
		h.logger.Error("Failed to list worlds", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list worlds")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, worlds)
}
