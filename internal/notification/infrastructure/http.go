package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/expresso-van/internal/auth"
	"github.com/mateusmacedo/expresso-van/internal/notification/application"
	"github.com/mateusmacedo/expresso-van/internal/notification/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	chiAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/chi/adapter"
)

const requestTimeout = 10 * time.Second

type pushTokenRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

type NotificationHTTPHandler struct {
	service *application.Service
	logger  pkgApp.AppLogger
}

func NewNotificationHTTPHandler(service *application.Service, logger pkgApp.AppLogger) *NotificationHTTPHandler {
	return &NotificationHTTPHandler{service: service, logger: logger}
}

func (h *NotificationHTTPHandler) HandleRegisterToken(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var req pushTokenRequest
	if err := chiAdapter.DecodeJSON(r, &req); err != nil {
		chiAdapter.WriteError(w, r, http.StatusBadRequest, chiAdapter.KindValidation, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.service.RegisterToken(ctx, identity.UserID, req.Token); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHTTPHandler) HandleSendTest(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := h.service.SendTest(ctx, identity.UserID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	chiAdapter.WriteJSON(w, http.StatusAccepted, report)
}

func (h *NotificationHTTPHandler) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Put("/v1/me/push-token", h.HandleRegisterToken)
		r.Post("/v1/me/notifications/test", h.HandleSendTest)
	})
}

func (h *NotificationHTTPHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrEmptyPushToken) {
		chiAdapter.WriteError(w, r, http.StatusBadRequest, chiAdapter.KindValidation, err.Error())
		return
	}
	pkgApp.LogError(r.Context(), h.logger, "notification request failed", err, map[string]interface{}{
		"path": r.URL.Path,
	})
	chiAdapter.WriteError(w, r, http.StatusBadGateway, "notification_failed", "notification delivery failed")
}
