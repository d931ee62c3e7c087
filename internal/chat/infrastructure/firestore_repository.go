package infrastructure

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mateusmacedo/expresso-van/internal/chat/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

const (
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

type chatDocument struct {
	UserID          string    `firestore:"userId"`
	UserEmail       string    `firestore:"userEmail"`
	CounterpartID   string    `firestore:"counterpartId"`
	CounterpartName string    `firestore:"counterpartName"`
	LastMessage     string    `firestore:"lastMessage"`
	LastMessageAt   time.Time `firestore:"lastMessageAt"`
	CreatedAt       time.Time `firestore:"createdAt"`
	Status          string    `firestore:"status"`
}

func (d chatDocument) toDomain(id string) domain.Chat {
	return domain.Chat{
		ID:              id,
		UserID:          d.UserID,
		UserEmail:       d.UserEmail,
		CounterpartID:   d.CounterpartID,
		CounterpartName: d.CounterpartName,
		LastMessage:     d.LastMessage,
		LastMessageAt:   d.LastMessageAt.UTC(),
		CreatedAt:       d.CreatedAt.UTC(),
		Status:          domain.ChatStatus(d.Status),
	}
}

type messageDocument struct {
	SenderID   string    `firestore:"senderId"`
	SenderName string    `firestore:"senderName"`
	Text       string    `firestore:"text"`
	Type       string    `firestore:"type"`
	SentAt     time.Time `firestore:"sentAt"`
	Read       bool      `firestore:"read"`
}

func newMessageDocument(m domain.Message) messageDocument {
	return messageDocument{
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Text:       m.Text,
		Type:       string(m.Type),
		SentAt:     m.SentAt,
		Read:       m.Read,
	}
}

// FirestoreRepository guarda as mensagens na subcoleção chats/{id}/messages.
type FirestoreRepository struct {
	client *firestore.Client
	logger pkgApp.AppLogger
}

func NewFirestoreRepository(client *firestore.Client, logger pkgApp.AppLogger) *FirestoreRepository {
	return &FirestoreRepository{client: client, logger: logger}
}

func (r *FirestoreRepository) chats() *firestore.CollectionRef {
	return r.client.Collection(chatsCollection)
}

func (r *FirestoreRepository) messages(chatID string) *firestore.CollectionRef {
	return r.chats().Doc(chatID).Collection(messagesCollection)
}

func (r *FirestoreRepository) FindActiveChat(ctx context.Context, userID, counterpartID string) (domain.Chat, error) {
	snaps, err := r.chats().
		Where("userId", "==", userID).
		Where("counterpartId", "==", counterpartID).
		Where("status", "==", string(domain.ChatActive)).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return domain.Chat{}, err
	}
	if len(snaps) == 0 {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	return decodeChat(snaps[0], nil)
}

func (r *FirestoreRepository) CreateChat(ctx context.Context, chat domain.Chat, welcome domain.Message) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(r.chats().Doc(chat.ID), chatDocument{
			UserID:          chat.UserID,
			UserEmail:       chat.UserEmail,
			CounterpartID:   chat.CounterpartID,
			CounterpartName: chat.CounterpartName,
			LastMessage:     chat.LastMessage,
			LastMessageAt:   chat.LastMessageAt,
			CreatedAt:       chat.CreatedAt,
			Status:          string(chat.Status),
		}); err != nil {
			return err
		}
		return tx.Create(r.messages(chat.ID).Doc(welcome.ID), newMessageDocument(welcome))
	})
}

func (r *FirestoreRepository) GetChat(ctx context.Context, chatID string) (domain.Chat, error) {
	snap, err := r.chats().Doc(chatID).Get(ctx)
	return decodeChat(snap, err)
}

func (r *FirestoreRepository) ListChatsByUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	snaps, err := r.chats().
		Where("userId", "==", userID).
		OrderBy("lastMessageAt", firestore.Desc).
		Documents(ctx).
		GetAll()
	if err != nil {
		pkgApp.LogError(ctx, r.logger, "failed to list chats", err, map[string]interface{}{"user_id": userID})
		return nil, err
	}

	chats := make([]domain.Chat, 0, len(snaps))
	for _, snap := range snaps {
		chat, err := decodeChat(snap, nil)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (r *FirestoreRepository) AppendMessage(ctx context.Context, message domain.Message) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.chats().Doc(message.ChatID)
		chat, err := decodeChat(tx.Get(ref))
		if err != nil {
			return err
		}
		if !chat.Active() {
			return domain.ErrChatClosed
		}

		if err := tx.Create(r.messages(chat.ID).Doc(message.ID), newMessageDocument(message)); err != nil {
			return err
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "lastMessage", Value: message.Text},
			{Path: "lastMessageAt", Value: message.SentAt},
		})
	})
}

func (r *FirestoreRepository) ListMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	snaps, err := r.messages(chatID).OrderBy("sentAt", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(snaps))
	for _, snap := range snaps {
		var doc messageDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", snap.Ref.ID, err)
		}
		messages = append(messages, domain.Message{
			ID:         snap.Ref.ID,
			ChatID:     chatID,
			SenderID:   doc.SenderID,
			SenderName: doc.SenderName,
			Text:       doc.Text,
			Type:       domain.MessageType(doc.Type),
			SentAt:     doc.SentAt.UTC(),
			Read:       doc.Read,
		})
	}
	return messages, nil
}

// MarkRead filtra o remetente em memória e grava pelo BulkWriter.
func (r *FirestoreRepository) MarkRead(ctx context.Context, chatID, readerID string) (int, error) {
	snaps, err := r.messages(chatID).Where("read", "==", false).Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}

	writer := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(snaps))
	for _, snap := range snaps {
		sender, err := snap.DataAt("senderId")
		if err != nil {
			return 0, err
		}
		if sender == readerID {
			continue
		}
		job, err := writer.Update(snap.Ref, []firestore.Update{{Path: "read", Value: true}})
		if err != nil {
			writer.End()
			return 0, err
		}
		jobs = append(jobs, job)
	}
	writer.End()

	updated := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			pkgApp.LogWarn(ctx, r.logger, "failed to mark message as read", err, map[string]interface{}{"chat_id": chatID})
			continue
		}
		updated++
	}
	return updated, nil
}

func (r *FirestoreRepository) CloseChat(ctx context.Context, chatID string, closedAt time.Time) error {
	_, err := r.chats().Doc(chatID).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(domain.ChatClosed)},
		{Path: "lastMessage", Value: domain.ClosedText},
		{Path: "lastMessageAt", Value: closedAt},
	})
	if status.Code(err) == codes.NotFound {
		return domain.ErrChatNotFound
	}
	return err
}

func decodeChat(snap *firestore.DocumentSnapshot, err error) (domain.Chat, error) {
	if status.Code(err) == codes.NotFound {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	if err != nil {
		return domain.Chat{}, err
	}
	var doc chatDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Chat{}, fmt.Errorf("decode chat %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}
