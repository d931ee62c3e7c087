package domain

import (
	"strings"
	"time"
)

type ChatStatus string

const (
	ChatActive ChatStatus = "active"
	ChatClosed ChatStatus = "closed"
)

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageImage  MessageType = "image"
	MessageSystem MessageType = "system"
)

const (
	SupportID   = "support"
	SupportName = "Support"
	SystemID    = "system"

	StartedText = "Chat started"
	ClosedText  = "Chat closed"
)

// Chat é a conversa entre um usuário e o motorista ou o suporte.
type Chat struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	UserEmail       string     `json:"userEmail"`
	CounterpartID   string     `json:"counterpartId"`
	CounterpartName string     `json:"counterpartName"`
	LastMessage     string     `json:"lastMessage"`
	LastMessageAt   time.Time  `json:"lastMessageAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	Status          ChatStatus `json:"status"`
}

func (c Chat) Active() bool {
	return c.Status == ChatActive
}

type Message struct {
	ID         string      `json:"id"`
	ChatID     string      `json:"chatId"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderName"`
	Text       string      `json:"text"`
	Type       MessageType `json:"type"`
	SentAt     time.Time   `json:"sentAt"`
	Read       bool        `json:"read"`
}

func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageText, MessageImage, MessageSystem:
		return true
	}
	return false
}

// WelcomeText é a primeira mensagem de sistema de um chat novo.
func WelcomeText(counterpartName string) string {
	return "Welcome! You are now talking to " + strings.TrimSpace(counterpartName) + "."
}
