package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageImage  MessageType = "IMAGE"
	MessageFile   MessageType = "FILE"
	MessageSystem MessageType = "SYSTEM"
)

// ChatMessage is a message posted to a room. Documents expire 30 days
// after CreatedAt through the TTL index on chat_messages.
type ChatMessage struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID     string             `bson:"roomId" json:"roomId"`
	SenderID   string             `bson:"senderId" json:"senderId"`
	SenderName string             `bson:"senderName,omitempty" json:"senderName,omitempty"`
	Content    string             `bson:"content" json:"content"`
	Type       MessageType        `bson:"type" json:"type"`
	ReadAt     *time.Time         `bson:"readAt,omitempty" json:"readAt,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
