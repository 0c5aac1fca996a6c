package model

import "time"

// MessageKind mirrors the content types delivered by the chat network.
// KindConsent is synthetic: it marks the turn in which a sender opted in.
type MessageKind string

const (
	KindText    MessageKind = "chat"
	KindAudio   MessageKind = "audio"
	KindImage   MessageKind = "image"
	KindConsent MessageKind = "consent"
	KindOther   MessageKind = "other"
)

type Conversation struct {
	ID          int64       `db:"id" json:"id"`
	UserID      string      `db:"user_id" json:"userId"`
	Timestamp   time.Time   `db:"timestamp" json:"timestamp"`
	MessageType MessageKind `db:"message_type" json:"messageType"`
	Content     string      `db:"content" json:"content"`
	Response    *string     `db:"response" json:"response,omitempty"`
	Consented   bool        `db:"consented" json:"consented"`
}

// Turn is the slice of a conversation row fed back into prompts.
type Turn struct {
	Content  string  `db:"content"`
	Response *string `db:"response"`
}
