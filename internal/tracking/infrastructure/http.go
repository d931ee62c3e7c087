package infrastructure

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/expresso-van/internal/tracking/application"
	chiAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/chi/adapter"
)

type TrackingHTTPHandler struct {
	tracker *application.Tracker
}

func NewTrackingHTTPHandler(tracker *application.Tracker) *TrackingHTTPHandler {
	return &TrackingHTTPHandler{tracker: tracker}
}

func (h *TrackingHTTPHandler) HandleVanPosition(w http.ResponseWriter, _ *http.Request) {
	chiAdapter.WriteJSON(w, http.StatusOK, h.tracker.Position())
}

func (h *TrackingHTTPHandler) RegisterRoutes(router chi.Router) {
	router.Get("/v1/tracking/van", h.HandleVanPosition)
}
