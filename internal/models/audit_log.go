package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailed  = "FAILED"
)

// AuditLog records one audited action. Timestamp is when the action
// started; CreatedAt drives the 90 day TTL on audit_logs.
type AuditLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"userId" json:"userId"`
	Action      string             `bson:"action" json:"action"`
	Resource    string             `bson:"resource,omitempty" json:"resource,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Args        []string           `bson:"args,omitempty" json:"args,omitempty"`
	Outcome     string             `bson:"outcome" json:"outcome"`
	Error       string             `bson:"error,omitempty" json:"error,omitempty"`
	DurationMs  int64              `bson:"durationMs" json:"durationMs"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
