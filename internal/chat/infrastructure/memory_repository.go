package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mateusmacedo/expresso-van/internal/chat/domain"
)

type InMemoryRepository struct {
	mu       sync.RWMutex
	chats    map[string]domain.Chat
	messages map[string][]domain.Message
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		chats:    make(map[string]domain.Chat),
		messages: make(map[string][]domain.Message),
	}
}

func (r *InMemoryRepository) FindActiveChat(_ context.Context, userID, counterpartID string) (domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, chat := range r.chats {
		if chat.UserID == userID && chat.CounterpartID == counterpartID && chat.Active() {
			return chat, nil
		}
	}
	return domain.Chat{}, domain.ErrChatNotFound
}

func (r *InMemoryRepository) CreateChat(_ context.Context, chat domain.Chat, welcome domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.chats[chat.ID] = chat
	r.messages[chat.ID] = []domain.Message{welcome}
	return nil
}

func (r *InMemoryRepository) GetChat(_ context.Context, chatID string) (domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	return chat, nil
}

func (r *InMemoryRepository) ListChatsByUser(_ context.Context, userID string) ([]domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chats := make([]domain.Chat, 0)
	for _, chat := range r.chats {
		if chat.UserID == userID {
			chats = append(chats, chat)
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastMessageAt.After(chats[j].LastMessageAt)
	})
	return chats, nil
}

func (r *InMemoryRepository) AppendMessage(_ context.Context, message domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[message.ChatID]
	if !ok {
		return domain.ErrChatNotFound
	}
	if !chat.Active() {
		return domain.ErrChatClosed
	}

	r.messages[chat.ID] = append(r.messages[chat.ID], message)
	chat.LastMessage = message.Text
	chat.LastMessageAt = message.SentAt
	r.chats[chat.ID] = chat
	return nil
}

func (r *InMemoryRepository) ListMessages(_ context.Context, chatID string) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := append([]domain.Message(nil), r.messages[chatID]...)
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})
	return messages, nil
}

func (r *InMemoryRepository) MarkRead(_ context.Context, chatID, readerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := 0
	messages := r.messages[chatID]
	for i := range messages {
		if !messages[i].Read && messages[i].SenderID != readerID {
			messages[i].Read = true
			updated++
		}
	}
	return updated, nil
}

func (r *InMemoryRepository) CloseChat(_ context.Context, chatID string, closedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	chat, ok := r.chats[chatID]
	if !ok {
		return domain.ErrChatNotFound
	}
	chat.Status = domain.ChatClosed
	chat.LastMessage = domain.ClosedText
	chat.LastMessageAt = closedAt
	r.chats[chatID] = chat
	return nil
}
