package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mateusmacedo/expresso-van/internal/chat/domain"
	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

type chatRecord struct {
	ID              string `gorm:"primaryKey"`
	UserID          string `gorm:"index:idx_chats_user_counterpart;not null"`
	UserEmail       string
	CounterpartID   string `gorm:"index:idx_chats_user_counterpart;not null"`
	CounterpartName string
	LastMessage     string
	LastMessageAt   time.Time `gorm:"index"`
	CreatedAt       time.Time
	Status          string `gorm:"not null"`
}

func (chatRecord) TableName() string { return "chats" }

func (r chatRecord) toDomain() domain.Chat {
	return domain.Chat{
		ID:              r.ID,
		UserID:          r.UserID,
		UserEmail:       r.UserEmail,
		CounterpartID:   r.CounterpartID,
		CounterpartName: r.CounterpartName,
		LastMessage:     r.LastMessage,
		LastMessageAt:   r.LastMessageAt.UTC(),
		CreatedAt:       r.CreatedAt.UTC(),
		Status:          domain.ChatStatus(r.Status),
	}
}

type messageRecord struct {
	ID         string `gorm:"primaryKey"`
	ChatID     string `gorm:"index;not null"`
	SenderID   string
	SenderName string
	Text       string
	Type       string
	SentAt     time.Time `gorm:"index"`
	Read       bool      `gorm:"not null"`
}

func (messageRecord) TableName() string { return "chat_messages" }

func (r messageRecord) toDomain() domain.Message {
	return domain.Message{
		ID:         r.ID,
		ChatID:     r.ChatID,
		SenderID:   r.SenderID,
		SenderName: r.SenderName,
		Text:       r.Text,
		Type:       domain.MessageType(r.Type),
		SentAt:     r.SentAt.UTC(),
		Read:       r.Read,
	}
}

func newMessageRecord(m domain.Message) messageRecord {
	return messageRecord{
		ID:         m.ID,
		ChatID:     m.ChatID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Text:       m.Text,
		Type:       string(m.Type),
		SentAt:     m.SentAt,
		Read:       m.Read,
	}
}

type GormRepository struct {
	db     *gorm.DB
	logger pkgApp.AppLogger
}

func NewGormRepository(db *gorm.DB, logger pkgApp.AppLogger) *GormRepository {
	return &GormRepository{db: db, logger: logger}
}

func (r *GormRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&chatRecord{}, &messageRecord{}); err != nil {
		return fmt.Errorf("migrate chat tables: %w", err)
	}
	return nil
}

func (r *GormRepository) FindActiveChat(ctx context.Context, userID, counterpartID string) (domain.Chat, error) {
	var record chatRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND counterpart_id = ? AND status = ?", userID, counterpartID, string(domain.ChatActive)).
		Order("created_at desc").
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	if err != nil {
		return domain.Chat{}, err
	}
	return record.toDomain(), nil
}

func (r *GormRepository) CreateChat(ctx context.Context, chat domain.Chat, welcome domain.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := chatRecord{
			ID:              chat.ID,
			UserID:          chat.UserID,
			UserEmail:       chat.UserEmail,
			CounterpartID:   chat.CounterpartID,
			CounterpartName: chat.CounterpartName,
			LastMessage:     chat.LastMessage,
			LastMessageAt:   chat.LastMessageAt,
			CreatedAt:       chat.CreatedAt,
			Status:          string(chat.Status),
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		message := newMessageRecord(welcome)
		return tx.Create(&message).Error
	})
}

func (r *GormRepository) GetChat(ctx context.Context, chatID string) (domain.Chat, error) {
	return getChat(r.db.WithContext(ctx), chatID, false)
}

func (r *GormRepository) ListChatsByUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	var records []chatRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("last_message_at desc").Find(&records).Error; err != nil {
		pkgApp.LogError(ctx, r.logger, "failed to list chats", err, map[string]interface{}{"user_id": userID})
		return nil, err
	}
	chats := make([]domain.Chat, 0, len(records))
	for _, rec := range records {
		chats = append(chats, rec.toDomain())
	}
	return chats, nil
}

// AppendMessage trava a linha do chat para que o fechamento não corra
// junto com o envio.
func (r *GormRepository) AppendMessage(ctx context.Context, message domain.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chat, err := getChat(tx, message.ChatID, true)
		if err != nil {
			return err
		}
		if !chat.Active() {
			return domain.ErrChatClosed
		}

		record := newMessageRecord(message)
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Model(&chatRecord{}).Where("id = ?", chat.ID).Updates(map[string]interface{}{
			"last_message":    message.Text,
			"last_message_at": message.SentAt,
		}).Error
	})
}

func (r *GormRepository) ListMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	var records []messageRecord
	if err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("sent_at asc").Find(&records).Error; err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(records))
	for _, rec := range records {
		messages = append(messages, rec.toDomain())
	}
	return messages, nil
}

func (r *GormRepository) MarkRead(ctx context.Context, chatID, readerID string) (int, error) {
	res := r.db.WithContext(ctx).Model(&messageRecord{}).
		Where("chat_id = ? AND read = ? AND sender_id <> ?", chatID, false, readerID).
		Update("read", true)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (r *GormRepository) CloseChat(ctx context.Context, chatID string, closedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&chatRecord{}).Where("id = ?", chatID).Updates(map[string]interface{}{
		"status":          string(domain.ChatClosed),
		"last_message":    domain.ClosedText,
		"last_message_at": closedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrChatNotFound
	}
	return nil
}

func getChat(db *gorm.DB, chatID string, lock bool) (domain.Chat, error) {
	query := db.Where("id = ?", chatID)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record chatRecord
	err := query.Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Chat{}, domain.ErrChatNotFound
	}
	if err != nil {
		return domain.Chat{}, err
	}
	return record.toDomain(), nil
}
