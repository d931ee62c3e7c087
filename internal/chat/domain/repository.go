package domain

import (
	"context"
	"time"
)

type Repository interface {
	// FindActiveChat devolve ErrChatNotFound quando não há chat ativo entre os dois.
	FindActiveChat(ctx context.Context, userID, counterpartID string) (Chat, error)
	// CreateChat grava o chat junto com a mensagem de boas-vindas.
	CreateChat(ctx context.Context, chat Chat, welcome Message) error
	GetChat(ctx context.Context, chatID string) (Chat, error)
	// ListChatsByUser ordena por LastMessageAt decrescente.
	ListChatsByUser(ctx context.Context, userID string) ([]Chat, error)
	// AppendMessage grava a mensagem e atualiza LastMessage/LastMessageAt
	// atomicamente; falha com ErrChatClosed se o chat não estiver ativo.
	AppendMessage(ctx context.Context, message Message) error
	// ListMessages ordena por SentAt crescente.
	ListMessages(ctx context.Context, chatID string) ([]Message, error)
	// MarkRead marca como lidas as mensagens não enviadas por readerID.
	MarkRead(ctx context.Context, chatID, readerID string) (int, error)
	CloseChat(ctx context.Context, chatID string, closedAt time.Time) error
}
