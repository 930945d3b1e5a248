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

var (
	ErrExerciseNotFound      = errors.New("exercise not found")
	ErrExerciseAlreadyExists = errors.New("exercise with this name already exists")
)

// ExerciseService manages the shared exercise catalog that workout exercises
// reference by id.
type ExerciseService interface {
	CreateExercise(ctx context.Context, exercise *domain.Exercise) (*domain.Exercise, error)
	GetExercise(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	ListExercises(ctx context.Context, muscleGroup string) ([]domain.Exercise, error)
}

type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
}

// NewExerciseService creates a new instance of ExerciseService.
func NewExerciseService(exerciseRepo repository.ExerciseRepository) ExerciseService {
	return &exerciseService{exerciseRepo: exerciseRepo}
}

func (s *exerciseService) CreateExercise(ctx context.Context, exercise *domain.Exercise) (*domain.Exercise, error) {
	now := time.Now().UTC()
	exercise.CreatedAt = now
	exercise.UpdatedAt = now

	id, err := s.exerciseRepo.Create(ctx, exercise)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrExerciseAlreadyExists
		}
		return nil, fmt.Errorf("failed to create exercise: %w", err)
	}
	exercise.ID = id
	return exercise, nil
}

func (s *exerciseService) GetExercise(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, fmt.Errorf("error fetching exercise: %w", err)
	}
	return exercise, nil
}

// ListExercises returns the catalog, optionally filtered by muscle group.
func (s *exerciseService) ListExercises(ctx context.Context, muscleGroup string) ([]domain.Exercise, error) {
	exercises, err := s.exerciseRepo.List(ctx, muscleGroup)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	return exercises, nil
}
