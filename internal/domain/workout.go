package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutStatus type for the workout lifecycle
type WorkoutStatus string

const (
	WorkoutStatusDraft     WorkoutStatus = "draft"
	WorkoutStatusCompleted WorkoutStatus = "completed"
)

// Workout represents a single training session owned by one user.
// A workout created offline carries a client-assigned id (ClientID) that stays
// stable across the offline/online boundary; the server id (ID) is assigned on
// first persistence. Workouts are never hard-deleted: DeletedAt marks a
// tombstone so that sync pull can report the deletion to other devices.
type Workout struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	ClientID  *string            `bson:"clientId,omitempty" json:"clientId,omitempty"` // Unique when present
	Title     string             `bson:"title" json:"title"`
	Status    WorkoutStatus      `bson:"status" json:"status"`
	StartedAt *time.Time         `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	EndedAt   *time.Time         `bson:"endedAt,omitempty" json:"endedAt,omitempty"`
	DeletedAt *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsDeleted reports whether the workout carries a tombstone.
func (w *Workout) IsDeleted() bool {
	return w.DeletedAt != nil
}

// WorkoutExercise is one exercise slot inside a workout. ExerciseID references
// the exercise catalog and is carried verbatim from the client; the server does
// not validate it against the catalog. OrderIndex is caller-supplied and never
// re-sequenced server-side.
type WorkoutExercise struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkoutID   primitive.ObjectID `bson:"workoutId" json:"workoutId"`
	ClientID    *string            `bson:"clientId,omitempty" json:"clientId,omitempty"` // Unique when present
	ExerciseID  string             `bson:"exerciseId" json:"exerciseId"`
	OrderIndex  int                `bson:"orderIndex" json:"orderIndex"`
	PlannedSets *int               `bson:"plannedSets,omitempty" json:"plannedSets,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Set is a single performed (or planned) set under a workout exercise.
type Set struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkoutExerciseID primitive.ObjectID `bson:"workoutExerciseId" json:"workoutExerciseId"`
	ClientID          *string            `bson:"clientId,omitempty" json:"clientId,omitempty"` // Unique when present
	Order             int                `bson:"order" json:"order"`
	Reps              *int               `bson:"reps,omitempty" json:"reps,omitempty"`
	Weight            *float64           `bson:"weight,omitempty" json:"weight,omitempty"`
	RPE               *float64           `bson:"rpe,omitempty" json:"rpe,omitempty"` // Perceived exertion
	DoneAt            *time.Time         `bson:"doneAt,omitempty" json:"doneAt,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
