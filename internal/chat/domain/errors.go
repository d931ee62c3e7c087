package domain

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindChatNotFound     Kind = "chat_not_found"
	KindChatClosed       Kind = "chat_closed"
	KindPermissionDenied Kind = "permission_denied"
	KindInvalidMessage   Kind = "invalid_message"
)

// ChatError segue o mesmo contrato dos erros de reserva: errors.Is compara o Kind.
type ChatError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *ChatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *ChatError) Unwrap() error { return e.Err }

func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	return ok && t.Kind == e.Kind
}

var (
	ErrChatNotFound     = &ChatError{Kind: KindChatNotFound, Msg: "chat not found"}
	ErrChatClosed       = &ChatError{Kind: KindChatClosed, Msg: "chat is closed"}
	ErrPermissionDenied = &ChatError{Kind: KindPermissionDenied, Msg: "chat belongs to another user"}
)

func InvalidMessage(msg string) error {
	return &ChatError{Kind: KindInvalidMessage, Msg: msg}
}

func KindOf(err error) (Kind, bool) {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
