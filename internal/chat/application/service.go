package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mateusmacedo/expresso-van/internal/auth"
	"github.com/mateusmacedo/expresso-van/internal/chat/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
)

const maxMessageLength = 2000

type EventBus = pkgApp.EventBus[pkgDomain.Event[domain.MessageSentData], domain.MessageSentData]

type Service struct {
	repository  domain.Repository
	eventBus    EventBus
	idGenerator pkgDomain.IDGenerator[string]
	now         func() time.Time
	logger      pkgApp.AppLogger
}

func NewService(repo domain.Repository, eventBus EventBus, idGenerator pkgDomain.IDGenerator[string], logger pkgApp.AppLogger) *Service {
	return &Service{
		repository:  repo,
		eventBus:    eventBus,
		idGenerator: idGenerator,
		now:         time.Now,
		logger:      logger,
	}
}

// GetOrCreateChat devolve o chat ativo com o interlocutor ou abre um novo.
// O bool indica se o chat foi criado agora.
func (s *Service) GetOrCreateChat(ctx context.Context, user auth.Identity, counterpartID, counterpartName string) (domain.Chat, bool, error) {
	if counterpartID == "" {
		counterpartID = domain.SupportID
	}
	if counterpartName == "" {
		counterpartName = domain.SupportName
	}

	chat, err := s.repository.FindActiveChat(ctx, user.UserID, counterpartID)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, domain.ErrChatNotFound) {
		return domain.Chat{}, false, err
	}

	now := s.now().UTC()
	chat = domain.Chat{
		ID:              s.idGenerator(),
		UserID:          user.UserID,
		UserEmail:       user.Email,
		CounterpartID:   counterpartID,
		CounterpartName: counterpartName,
		LastMessage:     domain.StartedText,
		LastMessageAt:   now,
		CreatedAt:       now,
		Status:          domain.ChatActive,
	}
	welcome := domain.Message{
		ID:         s.idGenerator(),
		ChatID:     chat.ID,
		SenderID:   domain.SystemID,
		SenderName: counterpartName,
		Text:       domain.WelcomeText(counterpartName),
		Type:       domain.MessageSystem,
		SentAt:     now,
	}
	if err := s.repository.CreateChat(ctx, chat, welcome); err != nil {
		pkgApp.LogError(ctx, s.logger, "error creating chat", err, map[string]interface{}{"user_id": user.UserID})
		return domain.Chat{}, false, err
	}

	pkgApp.LogInfo(ctx, s.logger, "chat created", map[string]interface{}{
		"chat_id":        chat.ID,
		"counterpart_id": counterpartID,
	})
	return chat, true, nil
}

func (s *Service) SendMessage(ctx context.Context, user auth.Identity, chatID, text string, messageType domain.MessageType) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, domain.InvalidMessage("text is required")
	}
	if len(text) > maxMessageLength {
		return domain.Message{}, domain.InvalidMessage("text is too long")
	}
	if messageType == "" {
		messageType = domain.MessageText
	}
	if !domain.ValidMessageType(messageType) || messageType == domain.MessageSystem {
		return domain.Message{}, domain.InvalidMessage("unsupported message type")
	}

	chat, err := s.ownedChat(ctx, user, chatID)
	if err != nil {
		return domain.Message{}, err
	}
	if !chat.Active() {
		return domain.Message{}, domain.ErrChatClosed
	}

	message := domain.Message{
		ID:         s.idGenerator(),
		ChatID:     chat.ID,
		SenderID:   user.UserID,
		SenderName: user.DisplayName(),
		Text:       text,
		Type:       messageType,
		SentAt:     s.now().UTC(),
	}
	if err := s.repository.AppendMessage(ctx, message); err != nil {
		return domain.Message{}, err
	}

	if s.eventBus != nil {
		event := pkgDomain.NewEvent(domain.EventMessageSent, domain.MessageSentData{
			ChatID:        chat.ID,
			MessageID:     message.ID,
			UserID:        chat.UserID,
			SenderID:      message.SenderID,
			CounterpartID: chat.CounterpartID,
			Text:          message.Text,
			Type:          string(message.Type),
			SentAt:        message.SentAt,
		})
		if err := s.eventBus.Publish(ctx, event); err != nil {
			pkgApp.LogError(ctx, s.logger, "error publishing event", err, map[string]interface{}{
				"event_name": domain.EventMessageSent,
				"chat_id":    chat.ID,
			})
		}
	}
	return message, nil
}

func (s *Service) ListMessages(ctx context.Context, user auth.Identity, chatID string) ([]domain.Message, error) {
	if _, err := s.ownedChat(ctx, user, chatID); err != nil {
		return nil, err
	}
	return s.repository.ListMessages(ctx, chatID)
}

func (s *Service) ListUserChats(ctx context.Context, user auth.Identity) ([]domain.Chat, error) {
	return s.repository.ListChatsByUser(ctx, user.UserID)
}

func (s *Service) MarkRead(ctx context.Context, user auth.Identity, chatID string) (int, error) {
	if _, err := s.ownedChat(ctx, user, chatID); err != nil {
		return 0, err
	}
	return s.repository.MarkRead(ctx, chatID, user.UserID)
}

// CloseChat é idempotente.
func (s *Service) CloseChat(ctx context.Context, user auth.Identity, chatID string) error {
	chat, err := s.ownedChat(ctx, user, chatID)
	if err != nil {
		return err
	}
	if !chat.Active() {
		return nil
	}
	if err := s.repository.CloseChat(ctx, chatID, s.now().UTC()); err != nil {
		return err
	}
	pkgApp.LogInfo(ctx, s.logger, "chat closed", map[string]interface{}{"chat_id": chatID})
	return nil
}

// SendQuickSupportMessage envia text para o suporte, abrindo o chat se preciso.
func (s *Service) SendQuickSupportMessage(ctx context.Context, user auth.Identity, text string) (domain.Chat, domain.Message, error) {
	chat, _, err := s.GetOrCreateChat(ctx, user, domain.SupportID, domain.SupportName)
	if err != nil {
		return domain.Chat{}, domain.Message{}, err
	}
	message, err := s.SendMessage(ctx, user, chat.ID, text, domain.MessageText)
	if err != nil {
		return domain.Chat{}, domain.Message{}, err
	}
	return chat, message, nil
}

func (s *Service) ownedChat(ctx context.Context, user auth.Identity, chatID string) (domain.Chat, error) {
	chat, err := s.repository.GetChat(ctx, chatID)
	if err != nil {
		return domain.Chat{}, err
	}
	if chat.UserID != user.UserID {
		return domain.Chat{}, domain.ErrPermissionDenied
	}
	return chat, nil
}
