package service

import (
	"context"
	"errors"
	"fmt"
	"gorillax/fitness-api/internal/domain"
	"gorillax/fitness-api/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrWorkoutNotFound = errors.New("workout not found")
	ErrNotOwner        = errors.New("workout does not belong to this user")
)

// WorkoutService is the direct (non-sync) workout surface: the web dashboard
// and other online-only clients use it instead of the mutation queue.
type WorkoutService interface {
	CreateWorkout(ctx context.Context, userID primitive.ObjectID, title string) (*domain.Workout, error)
	GetWorkout(ctx context.Context, userID, workoutID primitive.ObjectID) (*WorkoutTree, error)
	ListWorkouts(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error)
	DeleteWorkout(ctx context.Context, userID, workoutID primitive.ObjectID) error
}

// --- Service Implementation ---
type workoutService struct {
	workoutRepo  repository.WorkoutRepository
	exerciseRepo repository.WorkoutExerciseRepository
	setRepo      repository.SetRepository
}

// NewWorkoutService creates a new instance of WorkoutService.
func NewWorkoutService(
	workoutRepo repository.WorkoutRepository,
	exerciseRepo repository.WorkoutExerciseRepository,
	setRepo repository.SetRepository,
) WorkoutService {
	return &workoutService{
		workoutRepo:  workoutRepo,
		exerciseRepo: exerciseRepo,
		setRepo:      setRepo,
	}
}

// CreateWorkout starts a new draft workout for the user.
func (s *workoutService) CreateWorkout(ctx context.Context, userID primitive.ObjectID, title string) (*domain.Workout, error) {
	now := time.Now().UTC()
	workout := &domain.Workout{
		UserID:    userID,
		Title:     title,
		Status:    domain.WorkoutStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.workoutRepo.Create(ctx, workout)
	if err != nil {
		return nil, fmt.Errorf("failed to create workout: %w", err)
	}
	workout.ID = id
	return workout, nil
}

// GetWorkout returns one workout with its full exercise/set tree.
func (s *workoutService) GetWorkout(ctx context.Context, userID, workoutID primitive.ObjectID) (*WorkoutTree, error) {
	workout, err := s.getOwned(ctx, userID, workoutID)
	if err != nil {
		return nil, err
	}
	return buildWorkoutTree(ctx, workout, s.exerciseRepo, s.setRepo)
}

// ListWorkouts returns the user's live workouts, most recently updated first.
func (s *workoutService) ListWorkouts(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error) {
	workouts, err := s.workoutRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}
	return workouts, nil
}

// DeleteWorkout tombstones a workout so offline clients learn about the
// deletion on their next pull.
func (s *workoutService) DeleteWorkout(ctx context.Context, userID, workoutID primitive.ObjectID) error {
	workout, err := s.getOwned(ctx, userID, workoutID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	workout.DeletedAt = &now
	workout.UpdatedAt = now
	return s.workoutRepo.Update(ctx, workout)
}

func (s *workoutService) getOwned(ctx context.Context, userID, workoutID primitive.ObjectID) (*domain.Workout, error) {
	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("error fetching workout: %w", err)
	}
	if workout.UserID != userID {
		return nil, ErrNotOwner
	}
	return workout, nil
}
