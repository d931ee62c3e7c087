package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/expresso-van/internal/auth"
	"github.com/mateusmacedo/expresso-van/internal/chat/application"
	"github.com/mateusmacedo/expresso-van/internal/chat/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	chiAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/chi/adapter"
)

const requestTimeout = 10 * time.Second

type openChatRequest struct {
	CounterpartID   string `json:"counterpartId" validate:"omitempty,max=128"`
	CounterpartName string `json:"counterpartName" validate:"omitempty,max=128"`
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"required"`
	Type string `json:"type" validate:"omitempty,oneof=text image system"`
}

type supportMessageResponse struct {
	Chat    domain.Chat    `json:"chat"`
	Message domain.Message `json:"message"`
}

type ChatHTTPHandler struct {
	service *application.Service
	logger  pkgApp.AppLogger
}

func NewChatHTTPHandler(service *application.Service, logger pkgApp.AppLogger) *ChatHTTPHandler {
	return &ChatHTTPHandler{service: service, logger: logger}
}

func (h *ChatHTTPHandler) HandleListChats(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	chats, err := h.service.ListUserChats(ctx, identity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	chiAdapter.WriteJSON(w, http.StatusOK, chats)
}

func (h *ChatHTTPHandler) HandleOpenChat(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var req openChatRequest
	if r.ContentLength != 0 {
		if err := chiAdapter.DecodeJSON(r, &req); err != nil {
			chiAdapter.WriteError(w, r, http.StatusBadRequest, chiAdapter.KindValidation, err.Error())
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	chat, created, err := h.service.GetOrCreateChat(ctx, identity, req.CounterpartID, req.CounterpartName)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	chiAdapter.WriteJSON(w, status, chat)
}

func (h *ChatHTTPHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	messages, err := h.service.ListMessages(ctx, identity, chi.URLParam(r, "chatID"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	chiAdapter.WriteJSON(w, http.StatusOK, messages)
}

func (h *ChatHTTPHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var req sendMessageRequest
	if err := chiAdapter.DecodeJSON(r, &req); err != nil {
		chiAdapter.WriteError(w, r, http.StatusBadRequest, chiAdapter.KindValidation, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	message, err := h.service.SendMessage(ctx, identity, chi.URLParam(r, "chatID"), req.Text, domain.MessageType(req.Type))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	chiAdapter.WriteJSON(w, http.StatusCreated, message)
}

func (h *ChatHTTPHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	updated, err := h.service.MarkRead(ctx, identity, chi.URLParam(r, "chatID"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	chiAdapter.WriteJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (h *ChatHTTPHandler) HandleCloseChat(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.service.CloseChat(ctx, identity, chi.URLParam(r, "chatID")); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHTTPHandler) HandleSupportMessage(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	var req sendMessageRequest
	if err := chiAdapter.DecodeJSON(r, &req); err != nil {
		chiAdapter.WriteError(w, r, http.StatusBadRequest, chiAdapter.KindValidation, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	chat, message, err := h.service.SendQuickSupportMessage(ctx, identity, req.Text)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	chiAdapter.WriteJSON(w, http.StatusCreated, supportMessageResponse{Chat: chat, Message: message})
}

// RegisterRoutes registra as rotas de chat, todas autenticadas.
func (h *ChatHTTPHandler) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/v1/me/chats", h.HandleListChats)
		r.Post("/v1/me/chats", h.HandleOpenChat)
		r.Get("/v1/me/chats/{chatID}/messages", h.HandleListMessages)
		r.Post("/v1/me/chats/{chatID}/messages", h.HandleSendMessage)
		r.Post("/v1/me/chats/{chatID}/read", h.HandleMarkRead)
		r.Post("/v1/me/chats/{chatID}/close", h.HandleCloseChat)
		r.Post("/v1/me/support/messages", h.HandleSupportMessage)
	})
}

func (h *ChatHTTPHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := StatusFor(err)
	message := "internal error"
	var ce *domain.ChatError
	if errors.As(err, &ce) {
		message = ce.Msg
	}
	if status >= http.StatusInternalServerError {
		pkgApp.LogError(r.Context(), h.logger, "chat request failed", err, map[string]interface{}{
			"path": r.URL.Path,
		})
	}
	chiAdapter.WriteError(w, r, status, kind, message)
}

func StatusFor(err error) (int, string) {
	kind, ok := domain.KindOf(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "timeout"
		}
		return http.StatusInternalServerError, "internal"
	}

	switch kind {
	case domain.KindChatNotFound:
		return http.StatusNotFound, string(kind)
	case domain.KindChatClosed:
		return http.StatusConflict, string(kind)
	case domain.KindPermissionDenied:
		return http.StatusForbidden, string(kind)
	case domain.KindInvalidMessage:
		return http.StatusBadRequest, chiAdapter.KindValidation
	default:
		return http.StatusInternalServerError, string(kind)
	}
}
