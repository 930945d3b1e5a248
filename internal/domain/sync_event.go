package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncEvent is the durable overflow log for mutation kinds the reconciler does
// not natively model. Older server versions append such mutations here instead
// of dropping them, so newer clients never lose data to version skew.
// Append-only: rows are never mutated or deleted.
type SyncEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Action    string             `bson:"action" json:"action"`
	Payload   string             `bson:"payload,omitempty" json:"payload,omitempty"` // Raw JSON of the mutation payload
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
