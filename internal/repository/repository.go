package repository

import (
	"gorillax/fitness-api/internal/domain" // Import our defined domain models
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound          = RepositoryError("not found")
	ErrDuplicateClientID = RepositoryError("duplicate client id")
	ErrDuplicateKey      = RepositoryError("duplicate key")
	ErrUpdateFailed      = RepositoryError("update failed")
	ErrDeleteFailed      = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TransactionRunner executes a function inside one storage unit of work.
// Either every write made through fn's context commits together, or none do.
type TransactionRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// WorkoutRepository defines the interface for interacting with workout data.
// GetByClientID is a global lookup: client ids are unique per entity type, so
// owner scoping happens in the service layer, mirroring how offline clients
// reference records they created before ever talking to the server.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	GetByClientID(ctx context.Context, clientID string) (*domain.Workout, error)
	Update(ctx context.Context, workout *domain.Workout) error
	ListByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error)
	// ListUpdatedSince returns every workout (tombstones included) owned by the
	// user whose update timestamp is strictly after since, oldest change first.
	ListUpdatedSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]domain.Workout, error)
}

// WorkoutExerciseRepository defines the interface for workout exercise rows.
type WorkoutExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.WorkoutExercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutExercise, error)
	GetByClientID(ctx context.Context, clientID string) (*domain.WorkoutExercise, error)
	Update(ctx context.Context, exercise *domain.WorkoutExercise) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ListByWorkoutID returns the exercises of one workout ordered by their
	// caller-supplied order index, ascending.
	ListByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) ([]domain.WorkoutExercise, error)
}

// SetRepository defines the interface for set rows.
type SetRepository interface {
	Create(ctx context.Context, set *domain.Set) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Set, error)
	GetByClientID(ctx context.Context, clientID string) (*domain.Set, error)
	Update(ctx context.Context, set *domain.Set) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// DeleteByExerciseID removes every set under the exercise. Must run before
	// the exercise row itself is deleted.
	DeleteByExerciseID(ctx context.Context, exerciseID primitive.ObjectID) error
	// ListByExerciseID returns sets ordered by their order field, ascending.
	ListByExerciseID(ctx context.Context, exerciseID primitive.ObjectID) ([]domain.Set, error)
}

// SyncEventRepository defines the append-only overflow log interface.
type SyncEventRepository interface {
	Create(ctx context.Context, event *domain.SyncEvent) (primitive.ObjectID, error)
}

// ExerciseRepository defines the interface for the exercise catalog.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	List(ctx context.Context, muscleGroup string) ([]domain.Exercise, error)
}

// UploadRepository defines the interface for interacting with upload metadata.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
