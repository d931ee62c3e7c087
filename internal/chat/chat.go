package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/expresso-van/internal/chat/application"
	"github.com/mateusmacedo/expresso-van/internal/chat/domain"
	"github.com/mateusmacedo/expresso-van/internal/chat/infrastructure"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
)

type ChatSlice struct {
	service     *application.Service
	httpHandler *infrastructure.ChatHTTPHandler
}

func NewChatSlice(
	repository domain.Repository,
	eventBus application.EventBus,
	idGenerator pkgDomain.IDGenerator[string],
	logger pkgApp.AppLogger,
) *ChatSlice {
	service := application.NewService(repository, eventBus, idGenerator, logger)
	return &ChatSlice{
		service:     service,
		httpHandler: infrastructure.NewChatHTTPHandler(service, logger),
	}
}

func (s *ChatSlice) Service() *application.Service {
	return s.service
}

func (s *ChatSlice) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	s.httpHandler.RegisterRoutes(router, authenticate)
}
