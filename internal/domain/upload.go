package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upload stores metadata about a media object a user uploaded to S3
// (progress photos, workout videos). The binary itself lives in object
// storage; this record only tracks the key and ownership.
type Upload struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"userId" json:"userId"`
	WorkoutID   *primitive.ObjectID `bson:"workoutId,omitempty" json:"workoutId,omitempty"` // Optional link to a workout
	S3ObjectKey string              `bson:"s3ObjectKey" json:"-"`
	FileName    string              `bson:"fileName" json:"fileName"`
	ContentType string              `bson:"contentType" json:"contentType"`
	Size        int64               `bson:"size" json:"size"`
	UploadedAt  time.Time           `bson:"uploadedAt" json:"uploadedAt"`
}
