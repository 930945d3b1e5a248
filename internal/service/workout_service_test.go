package service

import (
	"context"
	"errors"
	"gorillax/fitness-api/internal/domain"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestWorkoutService() (WorkoutService, *mockWorkoutRepo, *mockExerciseRepo, *mockSetRepo) {
	workoutRepo := newMockWorkoutRepo()
	exerciseRepo := newMockExerciseRepo()
	setRepo := newMockSetRepo()
	return NewWorkoutService(workoutRepo, exerciseRepo, setRepo), workoutRepo, exerciseRepo, setRepo
}

func TestCreateWorkoutStartsAsDraft(t *testing.T) {
	svc, _, _, _ := newTestWorkoutService()
	userID := primitive.NewObjectID()

	workout, err := svc.CreateWorkout(context.Background(), userID, "Morning Session")
	if err != nil {
		t.Fatalf("CreateWorkout failed: %v", err)
	}
	if workout.Status != domain.WorkoutStatusDraft {
		t.Errorf("expected draft status, got %q", workout.Status)
	}
	if workout.ID.IsZero() {
		t.Error("expected an assigned id")
	}
}

func TestListWorkoutsExcludesTombstones(t *testing.T) {
	svc, workoutRepo, _, _ := newTestWorkoutService()
	userID := primitive.NewObjectID()
	deletedAt := time.Now().UTC()
	workoutRepo.insert(domain.Workout{UserID: userID, Title: "live", UpdatedAt: time.Now().UTC()})
	workoutRepo.insert(domain.Workout{UserID: userID, Title: "gone", DeletedAt: &deletedAt, UpdatedAt: time.Now().UTC()})

	workouts, err := svc.ListWorkouts(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListWorkouts failed: %v", err)
	}
	if len(workouts) != 1 || workouts[0].Title != "live" {
		t.Errorf("expected only the live workout, got %d", len(workouts))
	}
}

func TestGetWorkoutEnforcesOwnership(t *testing.T) {
	svc, workoutRepo, _, _ := newTestWorkoutService()
	owner := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	workoutID := workoutRepo.insert(domain.Workout{UserID: owner, Title: "mine"})

	if _, err := svc.GetWorkout(context.Background(), stranger, workoutID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	if _, err := svc.GetWorkout(context.Background(), owner, primitive.NewObjectID()); !errors.Is(err, ErrWorkoutNotFound) {
		t.Errorf("expected ErrWorkoutNotFound, got %v", err)
	}
}

func TestGetWorkoutReturnsTree(t *testing.T) {
	svc, workoutRepo, exerciseRepo, setRepo := newTestWorkoutService()
	userID := primitive.NewObjectID()
	workoutID := workoutRepo.insert(domain.Workout{UserID: userID, Title: "Legs"})
	exerciseID := exerciseRepo.insert(domain.WorkoutExercise{WorkoutID: workoutID, ExerciseID: "squat", OrderIndex: 1})
	setRepo.insert(domain.Set{WorkoutExerciseID: exerciseID, Order: 1})

	tree, err := svc.GetWorkout(context.Background(), userID, workoutID)
	if err != nil {
		t.Fatalf("GetWorkout failed: %v", err)
	}
	if len(tree.Exercises) != 1 || len(tree.Exercises[0].Sets) != 1 {
		t.Errorf("expected full tree, got %d exercises", len(tree.Exercises))
	}
}

func TestDeleteWorkoutTombstones(t *testing.T) {
	svc, workoutRepo, _, _ := newTestWorkoutService()
	userID := primitive.NewObjectID()
	workoutID := workoutRepo.insert(domain.Workout{UserID: userID, Title: "Legs"})

	if err := svc.DeleteWorkout(context.Background(), userID, workoutID); err != nil {
		t.Fatalf("DeleteWorkout failed: %v", err)
	}

	workout, err := workoutRepo.GetByID(context.Background(), workoutID)
	if err != nil {
		t.Fatalf("deleted workout must remain stored: %v", err)
	}
	if workout.DeletedAt == nil {
		t.Error("expected a tombstone, DeletedAt is nil")
	}
}
