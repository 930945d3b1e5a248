package service

import (
	"context"
	"errors"
	"gorillax/fitness-api/internal/domain"
	"gorillax/fitness-api/internal/repository"
	"sort"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- In-memory mocks ---

type mockTxRunner struct{}

func (mockTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockWorkoutRepo struct {
	workouts map[primitive.ObjectID]domain.Workout
	// onCreate runs at the start of Create, before the unique check. Lets a
	// test inject a competing insert to simulate a lost race.
	onCreate func()
}

func newMockWorkoutRepo() *mockWorkoutRepo {
	return &mockWorkoutRepo{workouts: make(map[primitive.ObjectID]domain.Workout)}
}

func (r *mockWorkoutRepo) insert(w domain.Workout) primitive.ObjectID {
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	r.workouts[w.ID] = w
	return w.ID
}

func (r *mockWorkoutRepo) Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error) {
	if r.onCreate != nil {
		r.onCreate()
		r.onCreate = nil
	}
	if workout.ClientID != nil {
		for _, existing := range r.workouts {
			if existing.ClientID != nil && *existing.ClientID == *workout.ClientID {
				return primitive.NilObjectID, repository.ErrDuplicateClientID
			}
		}
	}
	workout.ID = primitive.NewObjectID()
	r.workouts[workout.ID] = *workout
	return workout.ID, nil
}

func (r *mockWorkoutRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	if w, ok := r.workouts[id]; ok {
		copied := w
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *mockWorkoutRepo) GetByClientID(ctx context.Context, clientID string) (*domain.Workout, error) {
	for _, w := range r.workouts {
		if w.ClientID != nil && *w.ClientID == clientID {
			copied := w
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *mockWorkoutRepo) Update(ctx context.Context, workout *domain.Workout) error {
	if _, ok := r.workouts[workout.ID]; !ok {
		return repository.ErrNotFound
	}
	r.workouts[workout.ID] = *workout
	return nil
}

func (r *mockWorkoutRepo) ListByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Workout, error) {
	var result []domain.Workout
	for _, w := range r.workouts {
		if w.UserID == userID && !w.IsDeleted() {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })
	return result, nil
}

func (r *mockWorkoutRepo) ListUpdatedSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]domain.Workout, error) {
	var result []domain.Workout
	for _, w := range r.workouts {
		if w.UserID == userID && w.UpdatedAt.After(since) {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.Before(result[j].UpdatedAt)
		}
		return result[i].ID.Hex() < result[j].ID.Hex()
	})
	return result, nil
}

type mockExerciseRepo struct {
	exercises map[primitive.ObjectID]domain.WorkoutExercise
}

func newMockExerciseRepo() *mockExerciseRepo {
	return &mockExerciseRepo{exercises: make(map[primitive.ObjectID]domain.WorkoutExercise)}
}

func (r *mockExerciseRepo) insert(e domain.WorkoutExercise) primitive.ObjectID {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	r.exercises[e.ID] = e
	return e.ID
}

func (r *mockExerciseRepo) Create(ctx context.Context, exercise *domain.WorkoutExercise) (primitive.ObjectID, error) {
	if exercise.ClientID != nil {
		for _, existing := range r.exercises {
			if existing.ClientID != nil && *existing.ClientID == *exercise.ClientID {
				return primitive.NilObjectID, repository.ErrDuplicateClientID
			}
		}
	}
	exercise.ID = primitive.NewObjectID()
	r.exercises[exercise.ID] = *exercise
	return exercise.ID, nil
}

func (r *mockExerciseRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutExercise, error) {
	if e, ok := r.exercises[id]; ok {
		copied := e
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *mockExerciseRepo) GetByClientID(ctx context.Context, clientID string) (*domain.WorkoutExercise, error) {
	for _, e := range r.exercises {
		if e.ClientID != nil && *e.ClientID == clientID {
			copied := e
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *mockExerciseRepo) Update(ctx context.Context, exercise *domain.WorkoutExercise) error {
	if _, ok := r.exercises[exercise.ID]; !ok {
		return repository.ErrNotFound
	}
	r.exercises[exercise.ID] = *exercise
	return nil
}

func (r *mockExerciseRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := r.exercises[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.exercises, id)
	return nil
}

func (r *mockExerciseRepo) ListByWorkoutID(ctx context.Context, workoutID primitive.ObjectID) ([]domain.WorkoutExercise, error) {
	var result []domain.WorkoutExercise
	for _, e := range r.exercises {
		if e.WorkoutID == workoutID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderIndex < result[j].OrderIndex })
	return result, nil
}

type mockSetRepo struct {
	sets map[primitive.ObjectID]domain.Set
}

func newMockSetRepo() *mockSetRepo {
	return &mockSetRepo{sets: make(map[primitive.ObjectID]domain.Set)}
}

func (r *mockSetRepo) insert(s domain.Set) primitive.ObjectID {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	r.sets[s.ID] = s
	return s.ID
}

func (r *mockSetRepo) Create(ctx context.Context, set *domain.Set) (primitive.ObjectID, error) {
	if set.ClientID != nil {
		for _, existing := range r.sets {
			if existing.ClientID != nil && *existing.ClientID == *set.ClientID {
				return primitive.NilObjectID, repository.ErrDuplicateClientID
			}
		}
	}
	set.ID = primitive.NewObjectID()
	r.sets[set.ID] = *set
	return set.ID, nil
}

func (r *mockSetRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Set, error) {
	if s, ok := r.sets[id]; ok {
		copied := s
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *mockSetRepo) GetByClientID(ctx context.Context, clientID string) (*domain.Set, error) {
	for _, s := range r.sets {
		if s.ClientID != nil && *s.ClientID == clientID {
			copied := s
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *mockSetRepo) Update(ctx context.Context, set *domain.Set) error {
	if _, ok := r.sets[set.ID]; !ok {
		return repository.ErrNotFound
	}
	r.sets[set.ID] = *set
	return nil
}

func (r *mockSetRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := r.sets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sets, id)
	return nil
}

func (r *mockSetRepo) DeleteByExerciseID(ctx context.Context, exerciseID primitive.ObjectID) error {
	for id, s := range r.sets {
		if s.WorkoutExerciseID == exerciseID {
			delete(r.sets, id)
		}
	}
	return nil
}

func (r *mockSetRepo) ListByExerciseID(ctx context.Context, exerciseID primitive.ObjectID) ([]domain.Set, error) {
	var result []domain.Set
	for _, s := range r.sets {
		if s.WorkoutExerciseID == exerciseID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Order < result[j].Order })
	return result, nil
}

type mockEventRepo struct {
	events []domain.SyncEvent
}

func (r *mockEventRepo) Create(ctx context.Context, event *domain.SyncEvent) (primitive.ObjectID, error) {
	event.ID = primitive.NewObjectID()
	r.events = append(r.events, *event)
	return event.ID, nil
}

// --- Fixture ---

type syncFixture struct {
	svc          SyncService
	workoutRepo  *mockWorkoutRepo
	exerciseRepo *mockExerciseRepo
	setRepo      *mockSetRepo
	eventRepo    *mockEventRepo
	userID       primitive.ObjectID
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		workoutRepo:  newMockWorkoutRepo(),
		exerciseRepo: newMockExerciseRepo(),
		setRepo:      newMockSetRepo(),
		eventRepo:    &mockEventRepo{},
		userID:       primitive.NewObjectID(),
	}
	f.svc = NewSyncService(f.workoutRepo, f.exerciseRepo, f.setRepo, f.eventRepo, mockTxRunner{})
	return f
}

func strPtr(s string) *string { return &s }

func mutation(queueID, action string, payload map[string]any) domain.Mutation {
	return domain.Mutation{QueueID: queueID, Action: action, Payload: payload}
}

// --- Push tests ---

func TestPushEmptyBatch(t *testing.T) {
	f := newSyncFixture()

	result, err := f.svc.Push(context.Background(), f.userID, nil)
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if result.Processed != 0 {
		t.Errorf("expected 0 processed, got %d", result.Processed)
	}
	if len(result.Results) != 0 {
		t.Errorf("expected no results, got %d", len(result.Results))
	}
}

func TestPushCreateWorkoutIdempotent(t *testing.T) {
	f := newSyncFixture()
	m := mutation("q1", "create-workout", map[string]any{
		"client_id": "w-local-1",
		"title":     "Leg Day",
	})

	first, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{m})
	if err != nil {
		t.Fatalf("first push failed: %v", err)
	}
	if len(first.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(first.Results))
	}

	second, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{m})
	if err != nil {
		t.Fatalf("retried push failed: %v", err)
	}
	if second.Results[0].ServerID != first.Results[0].ServerID {
		t.Errorf("retry returned a different server id: %s vs %s", second.Results[0].ServerID, first.Results[0].ServerID)
	}
	if len(f.workoutRepo.workouts) != 1 {
		t.Errorf("expected exactly 1 workout after retry, got %d", len(f.workoutRepo.workouts))
	}
}

func TestPushCreateWorkoutRaceRefetchesExisting(t *testing.T) {
	f := newSyncFixture()
	var competitorID primitive.ObjectID
	f.workoutRepo.onCreate = func() {
		// A concurrent retry of the same batch wins the insert between the
		// idempotency pre-check and our own insert.
		competitorID = f.workoutRepo.insert(domain.Workout{
			UserID:   f.userID,
			ClientID: strPtr("w-race"),
			Title:    "Push Day",
			Status:   domain.WorkoutStatusDraft,
		})
	}

	result, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "create-workout", map[string]any{"client_id": "w-race", "title": "Push Day"}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if result.Results[0].ServerID != competitorID.Hex() {
		t.Errorf("expected the winner's id %s, got %s", competitorID.Hex(), result.Results[0].ServerID)
	}
	if len(f.workoutRepo.workouts) != 1 {
		t.Errorf("expected 1 workout, got %d", len(f.workoutRepo.workouts))
	}
}

func TestPushAppliesBatchInOrder(t *testing.T) {
	f := newSyncFixture()

	result, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "create-workout", map[string]any{"client_id": "w-1", "title": "Legs"}),
		mutation("q2", "update-title", map[string]any{"workoutClientId": "w-1", "title": "Leg Day"}),
		mutation("q3", "complete-workout", map[string]any{"workoutClientId": "w-1"}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if result.Processed != 3 {
		t.Errorf("expected 3 processed, got %d", result.Processed)
	}
	if len(result.Results) != 1 {
		t.Fatalf("expected only the create to produce a result, got %d", len(result.Results))
	}

	workout, err := f.workoutRepo.GetByClientID(context.Background(), "w-1")
	if err != nil {
		t.Fatalf("workout not stored: %v", err)
	}
	if workout.Title != "Leg Day" {
		t.Errorf("expected title 'Leg Day', got %q", workout.Title)
	}
	if workout.Status != domain.WorkoutStatusCompleted {
		t.Errorf("expected status completed, got %q", workout.Status)
	}
}

func TestPushOutOfOrderBatchDoesNotFail(t *testing.T) {
	f := newSyncFixture()

	// The exercise references a workout that only exists later in the batch.
	// The dangling mutation must no-op without poisoning the rest.
	result, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "add-exercise", map[string]any{
			"client_id":       "e-1",
			"workoutClientId": "w-1",
			"exerciseId":      "squat",
			"orderIndex":      float64(0),
		}),
		mutation("q2", "create-workout", map[string]any{"client_id": "w-1", "title": "Legs"}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if result.Processed != 2 {
		t.Errorf("expected 2 processed, got %d", result.Processed)
	}
	if len(f.exerciseRepo.exercises) != 0 {
		t.Errorf("dangling add-exercise should not persist, found %d", len(f.exerciseRepo.exercises))
	}
	if _, err := f.workoutRepo.GetByClientID(context.Background(), "w-1"); err != nil {
		t.Errorf("create after the dangling mutation should still apply: %v", err)
	}
}

func TestPushMutationForMissingTargetIsDropped(t *testing.T) {
	f := newSyncFixture()

	result, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "update-title", map[string]any{"workoutClientId": "nope", "title": "x"}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if result.Processed != 1 {
		t.Errorf("expected 1 processed, got %d", result.Processed)
	}
	if len(result.Results) != 0 {
		t.Errorf("expected no results, got %d", len(result.Results))
	}
}

func TestPushWorkoutMutationsScopedToOwner(t *testing.T) {
	f := newSyncFixture()
	otherUser := primitive.NewObjectID()
	workoutID := f.workoutRepo.insert(domain.Workout{
		UserID: otherUser,
		Title:  "Private",
		Status: domain.WorkoutStatusDraft,
	})

	_, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "update-title", map[string]any{"workoutServerId": workoutID.Hex(), "title": "Hijacked"}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	workout, _ := f.workoutRepo.GetByID(context.Background(), workoutID)
	if workout.Title != "Private" {
		t.Errorf("another user's workout was modified: %q", workout.Title)
	}
}

func TestPushSetResolutionIsGlobalByClientID(t *testing.T) {
	f := newSyncFixture()
	// Set and exercise lookups resolve by client or server id alone;
	// ownership checks happen at the workout level only.
	otherUser := primitive.NewObjectID()
	workoutID := f.workoutRepo.insert(domain.Workout{UserID: otherUser, Status: domain.WorkoutStatusDraft})
	exerciseID := f.exerciseRepo.insert(domain.WorkoutExercise{WorkoutID: workoutID, ExerciseID: "bench"})
	f.setRepo.insert(domain.Set{WorkoutExerciseID: exerciseID, ClientID: strPtr("s-other")})

	_, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "update-set", map[string]any{
			"setClientId": "s-other",
			"updates":     map[string]any{"reps": float64(3)},
		}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	set, _ := f.setRepo.GetByClientID(context.Background(), "s-other")
	if set.Reps == nil || *set.Reps != 3 {
		t.Errorf("set resolved by client id must be patched regardless of workout owner, got %v", set.Reps)
	}
}

func TestPushInvalidTimestampRejectsWholeBatch(t *testing.T) {
	f := newSyncFixture()

	_, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "create-workout", map[string]any{"client_id": "w-1", "title": "Legs"}),
		mutation("q2", "update-title", map[string]any{"workoutClientId": "w-1", "updated_at": "yesterday"}),
	})
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
	if len(f.workoutRepo.workouts) != 0 {
		t.Errorf("no mutation may apply when the batch is rejected, found %d workouts", len(f.workoutRepo.workouts))
	}
}

func TestPushUnknownActionPayloadIsNeverValidated(t *testing.T) {
	f := newSyncFixture()

	// A newer client's mutation kind may reuse key names like created_at with
	// its own format. The payload is opaque here: store it, don't parse it.
	result, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "log-note", map[string]any{
			"created_at": "2026-08-30T10:00:00Z",
			"text":       "new client feature",
		}),
	})
	if err != nil {
		t.Fatalf("unknown actions must never be rejected, got: %v", err)
	}
	if len(f.eventRepo.events) != 1 {
		t.Fatalf("expected the mutation logged as an event, got %d", len(f.eventRepo.events))
	}
	if !strings.Contains(f.eventRepo.events[0].Payload, "2026-08-30T10:00:00Z") {
		t.Errorf("payload must be stored verbatim, got %q", f.eventRepo.events[0].Payload)
	}
	if len(result.Results) != 1 {
		t.Errorf("expected the event id in results, got %d results", len(result.Results))
	}
}

func TestPushIgnoresTimestampKeysTheActionDoesNotRead(t *testing.T) {
	f := newSyncFixture()
	f.workoutRepo.insert(domain.Workout{
		UserID:   f.userID,
		ClientID: strPtr("w-1"),
		Title:    "Legs",
		Status:   domain.WorkoutStatusDraft,
	})

	// update-title only reads updated_at; a malformed started_at riding along
	// in the payload is dead weight, not grounds for rejection.
	_, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "update-title", map[string]any{
			"workoutClientId": "w-1",
			"title":           "Leg Day",
			"started_at":      "not-a-timestamp",
		}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	workout, _ := f.workoutRepo.GetByClientID(context.Background(), "w-1")
	if workout.Title != "Leg Day" {
		t.Errorf("expected title applied, got %q", workout.Title)
	}
}

func TestPushDeleteWorkoutKeepsTombstone(t *testing.T) {
	f := newSyncFixture()
	workoutID := f.workoutRepo.insert(domain.Workout{
		UserID:    f.userID,
		ClientID:  strPtr("w-1"),
		Title:     "Legs",
		Status:    domain.WorkoutStatusDraft,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	})

	deletedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	_, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "delete-workout", map[string]any{
			"workoutClientId": "w-1",
			"deleted_at":      float64(deletedAt.UnixMilli()),
		}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	workout, err := f.workoutRepo.GetByID(context.Background(), workoutID)
	if err != nil {
		t.Fatalf("tombstoned workout must remain readable: %v", err)
	}
	if workout.DeletedAt == nil || !workout.DeletedAt.Equal(deletedAt) {
		t.Errorf("expected deletedAt %v, got %v", deletedAt, workout.DeletedAt)
	}
}

func TestPushAddSetIdempotent(t *testing.T) {
	f := newSyncFixture()
	workoutID := f.workoutRepo.insert(domain.Workout{UserID: f.userID, ClientID: strPtr("w-1"), Status: domain.WorkoutStatusDraft})
	f.exerciseRepo.insert(domain.WorkoutExercise{WorkoutID: workoutID, ClientID: strPtr("e-1"), ExerciseID: "squat"})

	m := mutation("q1", "add-set", map[string]any{
		"client_id":        "s-1",
		"exerciseClientId": "e-1",
		"payload": map[string]any{
			"order":  float64(1),
			"reps":   float64(8),
			"weight": 92.5,
		},
	})

	first, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{m})
	if err != nil {
		t.Fatalf("first push failed: %v", err)
	}
	second, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{m})
	if err != nil {
		t.Fatalf("retried push failed: %v", err)
	}
	if first.Results[0].ServerID != second.Results[0].ServerID {
		t.Errorf("retry returned a different set id")
	}
	if len(f.setRepo.sets) != 1 {
		t.Fatalf("expected 1 set, got %d", len(f.setRepo.sets))
	}

	set, _ := f.setRepo.GetByClientID(context.Background(), "s-1")
	if set.Reps == nil || *set.Reps != 8 {
		t.Errorf("expected 8 reps, got %v", set.Reps)
	}
	if set.Weight == nil || *set.Weight != 92.5 {
		t.Errorf("expected weight 92.5, got %v", set.Weight)
	}
}

func TestPushUpdateSetAppliesPartialPatch(t *testing.T) {
	f := newSyncFixture()
	reps := 8
	weight := 100.0
	doneAt := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	exerciseID := f.exerciseRepo.insert(domain.WorkoutExercise{ExerciseID: "bench"})
	f.setRepo.insert(domain.Set{
		WorkoutExerciseID: exerciseID,
		ClientID:          strPtr("s-1"),
		Order:             1,
		Reps:              &reps,
		Weight:            &weight,
		DoneAt:            &doneAt,
	})

	_, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "update-set", map[string]any{
			"setClientId": "s-1",
			"updates":     map[string]any{"reps": float64(10)},
		}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	set, _ := f.setRepo.GetByClientID(context.Background(), "s-1")
	if set.Reps == nil || *set.Reps != 10 {
		t.Errorf("expected reps patched to 10, got %v", set.Reps)
	}
	if set.Weight == nil || *set.Weight != 100.0 {
		t.Errorf("weight must be untouched, got %v", set.Weight)
	}
	if set.DoneAt == nil {
		t.Errorf("doneAt must be untouched when absent from the patch")
	}
}

func TestPushUpdateSetFalsyDoneAtClearsIt(t *testing.T) {
	f := newSyncFixture()
	doneAt := time.Now().UTC()
	exerciseID := f.exerciseRepo.insert(domain.WorkoutExercise{ExerciseID: "bench"})
	f.setRepo.insert(domain.Set{WorkoutExerciseID: exerciseID, ClientID: strPtr("s-1"), DoneAt: &doneAt})

	_, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "update-set", map[string]any{
			"setClientId": "s-1",
			"updates":     map[string]any{"done_at": float64(0)},
		}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	set, _ := f.setRepo.GetByClientID(context.Background(), "s-1")
	if set.DoneAt != nil {
		t.Errorf("expected doneAt cleared, got %v", set.DoneAt)
	}
}

func TestPushUpdateExercisePlanAcceptsIntegersOnly(t *testing.T) {
	f := newSyncFixture()
	planned := 4
	f.exerciseRepo.insert(domain.WorkoutExercise{ClientID: strPtr("e-1"), ExerciseID: "squat", PlannedSets: &planned})

	_, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "update-exercise-plan", map[string]any{"exerciseClientId": "e-1", "plannedSets": float64(5)}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	exercise, _ := f.exerciseRepo.GetByClientID(context.Background(), "e-1")
	if exercise.PlannedSets == nil || *exercise.PlannedSets != 5 {
		t.Errorf("expected plannedSets 5, got %v", exercise.PlannedSets)
	}

	// Anything other than a whole number clears the plan to unset.
	for _, bad := range []any{"three", 2.5, true} {
		_, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
			mutation("q2", "update-exercise-plan", map[string]any{"exerciseClientId": "e-1", "plannedSets": bad}),
		})
		if err != nil {
			t.Fatalf("Push failed for value %v: %v", bad, err)
		}
		exercise, _ = f.exerciseRepo.GetByClientID(context.Background(), "e-1")
		if exercise.PlannedSets != nil {
			t.Errorf("value %v must clear plannedSets, got %v", bad, *exercise.PlannedSets)
		}
	}
}

func TestPushRemoveSetDeletesOrNoOps(t *testing.T) {
	f := newSyncFixture()
	exerciseID := f.exerciseRepo.insert(domain.WorkoutExercise{ExerciseID: "bench"})
	f.setRepo.insert(domain.Set{WorkoutExerciseID: exerciseID, ClientID: strPtr("s-1"), Order: 1})
	keptID := f.setRepo.insert(domain.Set{WorkoutExerciseID: exerciseID, ClientID: strPtr("s-2"), Order: 2})

	result, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "remove-set", map[string]any{"setClientId": "s-1"}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if len(result.Results) != 0 {
		t.Errorf("remove-set must produce no result entry, got %d", len(result.Results))
	}
	if _, err := f.setRepo.GetByClientID(context.Background(), "s-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected set deleted, got %v", err)
	}
	if _, err := f.setRepo.GetByID(context.Background(), keptID); err != nil {
		t.Errorf("sibling set must survive: %v", err)
	}

	// A retry of the same removal, or a removal of a never-synced set, no-ops.
	retried, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q2", "remove-set", map[string]any{"setClientId": "s-1"}),
	})
	if err != nil {
		t.Fatalf("retried remove-set must not fail: %v", err)
	}
	if retried.Processed != 1 {
		t.Errorf("no-op removal still counts as processed, got %d", retried.Processed)
	}
	if len(f.setRepo.sets) != 1 {
		t.Errorf("expected 1 remaining set, got %d", len(f.setRepo.sets))
	}
}

func TestPushRemoveExerciseCascadesToSets(t *testing.T) {
	f := newSyncFixture()
	workoutID := f.workoutRepo.insert(domain.Workout{UserID: f.userID, Status: domain.WorkoutStatusDraft})
	exerciseID := f.exerciseRepo.insert(domain.WorkoutExercise{WorkoutID: workoutID, ClientID: strPtr("e-1"), ExerciseID: "squat"})
	f.setRepo.insert(domain.Set{WorkoutExerciseID: exerciseID, Order: 1})
	f.setRepo.insert(domain.Set{WorkoutExerciseID: exerciseID, Order: 2})

	_, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "remove-exercise", map[string]any{"exerciseClientId": "e-1"}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if len(f.exerciseRepo.exercises) != 0 {
		t.Errorf("exercise must be removed, %d remain", len(f.exerciseRepo.exercises))
	}
	if len(f.setRepo.sets) != 0 {
		t.Errorf("child sets must be removed with the exercise, %d remain", len(f.setRepo.sets))
	}
}

func TestPushUnknownActionGoesToEventLog(t *testing.T) {
	f := newSyncFixture()

	result, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "log-body-weight", map[string]any{"kg": 81.4}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if result.Processed != 1 {
		t.Errorf("unknown actions still count as processed, got %d", result.Processed)
	}
	if len(f.eventRepo.events) != 1 {
		t.Fatalf("expected 1 logged event, got %d", len(f.eventRepo.events))
	}

	event := f.eventRepo.events[0]
	if event.Action != "log-body-weight" {
		t.Errorf("expected action preserved, got %q", event.Action)
	}
	if event.UserID != f.userID {
		t.Errorf("event must be attributed to the pushing user")
	}
	if !strings.Contains(event.Payload, "81.4") {
		t.Errorf("payload must be stored verbatim, got %q", event.Payload)
	}
	if len(result.Results) != 1 || result.Results[0].ServerID != event.ID.Hex() {
		t.Errorf("result must reference the logged event id")
	}
}

// --- Pull tests ---

func TestPullReturnsChangesAfterCursorInOrder(t *testing.T) {
	f := newSyncFixture()
	base := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	f.workoutRepo.insert(domain.Workout{UserID: f.userID, Title: "first", UpdatedAt: base})
	secondID := f.workoutRepo.insert(domain.Workout{UserID: f.userID, Title: "second", UpdatedAt: base.Add(time.Hour)})
	thirdID := f.workoutRepo.insert(domain.Workout{UserID: f.userID, Title: "third", UpdatedAt: base.Add(2 * time.Hour)})
	// Another user's workout in the same window must never leak.
	f.workoutRepo.insert(domain.Workout{UserID: primitive.NewObjectID(), Title: "foreign", UpdatedAt: base.Add(time.Hour)})

	result, err := f.svc.Pull(context.Background(), f.userID, base)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if len(result.Events) != 2 {
		t.Fatalf("expected 2 events after cursor, got %d", len(result.Events))
	}
	if result.Events[0].ID != secondID.Hex() || result.Events[1].ID != thirdID.Hex() {
		t.Errorf("events out of order: %s, %s", result.Events[0].ID, result.Events[1].ID)
	}
	if result.Events[0].Action != EventWorkoutUpsert {
		t.Errorf("expected upsert action, got %q", result.Events[0].Action)
	}
}

func TestPullEmitsTombstoneForDeletedWorkout(t *testing.T) {
	f := newSyncFixture()
	deletedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	f.workoutRepo.insert(domain.Workout{
		UserID:    f.userID,
		Title:     "gone",
		DeletedAt: &deletedAt,
		UpdatedAt: deletedAt,
	})

	result, err := f.svc.Pull(context.Background(), f.userID, time.Time{})
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}
	if result.Events[0].Action != EventWorkoutDelete {
		t.Errorf("expected delete action, got %q", result.Events[0].Action)
	}
	if result.Events[0].Payload.DeletedAt == nil {
		t.Errorf("tombstone event must carry the deletion timestamp")
	}
}

func TestPullAssemblesFullTree(t *testing.T) {
	f := newSyncFixture()
	reps := 5
	workoutID := f.workoutRepo.insert(domain.Workout{
		UserID:    f.userID,
		ClientID:  strPtr("w-1"),
		Title:     "Legs",
		Status:    domain.WorkoutStatusDraft,
		UpdatedAt: time.Now().UTC(),
	})
	secondExercise := f.exerciseRepo.insert(domain.WorkoutExercise{WorkoutID: workoutID, ExerciseID: "lunge", OrderIndex: 2})
	firstExercise := f.exerciseRepo.insert(domain.WorkoutExercise{WorkoutID: workoutID, ClientID: strPtr("e-1"), ExerciseID: "squat", OrderIndex: 1})
	f.setRepo.insert(domain.Set{WorkoutExerciseID: firstExercise, Order: 2, Reps: &reps})
	f.setRepo.insert(domain.Set{WorkoutExerciseID: firstExercise, Order: 1})

	result, err := f.svc.Pull(context.Background(), f.userID, time.Time{})
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}

	tree := result.Events[0].Payload
	if tree.ClientID == nil || *tree.ClientID != "w-1" {
		t.Errorf("tree must carry the workout client id")
	}
	if len(tree.Exercises) != 2 {
		t.Fatalf("expected 2 exercises, got %d", len(tree.Exercises))
	}
	if tree.Exercises[0].ServerID != firstExercise.Hex() || tree.Exercises[1].ServerID != secondExercise.Hex() {
		t.Errorf("exercises must be ordered by order index")
	}
	sets := tree.Exercises[0].Sets
	if len(sets) != 2 {
		t.Fatalf("expected 2 sets, got %d", len(sets))
	}
	if sets[0].Order != 1 || sets[1].Order != 2 {
		t.Errorf("sets must be ordered by order field")
	}
	if sets[1].Reps == nil || *sets[1].Reps != 5 {
		t.Errorf("set fields must survive the round trip")
	}
}

// --- End to end ---

func TestPushThenPullRoundTrip(t *testing.T) {
	f := newSyncFixture()

	pushed, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q1", "create-workout", map[string]any{"client_id": "w-1", "title": "Pull Day"}),
		mutation("q2", "add-exercise", map[string]any{
			"client_id":       "e-1",
			"workoutClientId": "w-1",
			"exerciseId":      "deadlift",
			"orderIndex":      float64(0),
			"plannedSets":     float64(3),
		}),
		mutation("q3", "add-set", map[string]any{
			"client_id":        "s-1",
			"exerciseClientId": "e-1",
			"payload":          map[string]any{"order": float64(1), "reps": float64(5), "weight": float64(140)},
		}),
	})
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if len(pushed.Results) != 3 {
		t.Fatalf("expected 3 results for 3 creating mutations, got %d", len(pushed.Results))
	}

	pulled, err := f.svc.Pull(context.Background(), f.userID, time.Time{})
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if len(pulled.Events) != 1 {
		t.Fatalf("expected 1 workout in snapshot, got %d", len(pulled.Events))
	}
	tree := pulled.Events[0].Payload
	if tree.Title != "Pull Day" {
		t.Errorf("expected title 'Pull Day', got %q", tree.Title)
	}
	if len(tree.Exercises) != 1 || tree.Exercises[0].ExerciseID != "deadlift" {
		t.Fatalf("exercise missing from tree")
	}
	if tree.Exercises[0].PlannedSets == nil || *tree.Exercises[0].PlannedSets != 3 {
		t.Errorf("plannedSets must survive, got %v", tree.Exercises[0].PlannedSets)
	}
	if len(tree.Exercises[0].Sets) != 1 {
		t.Fatalf("set missing from tree")
	}

	// Incremental pull from the returned cursor sees nothing new.
	next, err := f.svc.Pull(context.Background(), f.userID, pulled.ServerTime)
	if err != nil {
		t.Fatalf("second Pull failed: %v", err)
	}
	if len(next.Events) != 0 {
		t.Errorf("expected empty incremental pull, got %d events", len(next.Events))
	}

	// A later mutation shows up in the next incremental pull.
	time.Sleep(5 * time.Millisecond)
	if _, err := f.svc.Push(context.Background(), f.userID, []domain.Mutation{
		mutation("q4", "update-title", map[string]any{"workoutClientId": "w-1", "title": "Heavy Pull Day"}),
	}); err != nil {
		t.Fatalf("second push failed: %v", err)
	}

	after, err := f.svc.Pull(context.Background(), f.userID, pulled.ServerTime)
	if err != nil {
		t.Fatalf("third Pull failed: %v", err)
	}
	if len(after.Events) != 1 {
		t.Fatalf("expected the updated workout in incremental pull, got %d events", len(after.Events))
	}
	if after.Events[0].Payload.Title != "Heavy Pull Day" {
		t.Errorf("expected updated title, got %q", after.Events[0].Payload.Title)
	}
}
