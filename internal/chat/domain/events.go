package domain

import "time"

const EventMessageSent = "ChatMessageSent"

type MessageSentData struct {
	ChatID        string    `json:"chatId"`
	MessageID     string    `json:"messageId"`
	UserID        string    `json:"userId"`
	SenderID      string    `json:"senderId"`
	CounterpartID string    `json:"counterpartId"`
	Text          string    `json:"text"`
	Type          string    `json:"type"`
	SentAt        time.Time `json:"sentAt"`
}
