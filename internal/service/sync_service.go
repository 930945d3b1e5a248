package service

import (
	"context"
	"encoding/json"
	"errors"
	"gorillax/fitness-api/internal/domain"
	"gorillax/fitness-api/internal/repository"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	// ErrInvalidTimestamp rejects a push batch before any mutation is applied:
	// partial application followed by rejection would break batch atomicity.
	ErrInvalidTimestamp = errors.New("invalid timestamp in mutation payload")
)

// Mutation actions understood by the reconciler. Anything else falls through
// to the SyncEvent overflow log.
const (
	actionCreateWorkout      = "create-workout"
	actionUpdateTitle        = "update-title"
	actionCompleteWorkout    = "complete-workout"
	actionDeleteWorkout      = "delete-workout"
	actionAddExercise        = "add-exercise"
	actionUpdateExercisePlan = "update-exercise-plan"
	actionRemoveExercise     = "remove-exercise"
	actionAddSet             = "add-set"
	actionUpdateSet          = "update-set"
	actionRemoveSet          = "remove-set"
)

// Pull event action tags.
const (
	EventWorkoutUpsert = "workout-upsert"
	EventWorkoutDelete = "workout-delete"
)

// MutationResult binds a client queue entry to the server id it produced or
// resolved to. Update/delete-style mutations that succeed silently produce no
// result entry.
type MutationResult struct {
	QueueID  string `json:"queue_id"`
	ServerID string `json:"server_id"`
}

// PushResult is the outcome of one reconciled mutation batch.
type PushResult struct {
	Processed  int
	ServerTime time.Time
	Results    []MutationResult
}

// SetTree is the wire shape of one set inside a pulled workout tree.
type SetTree struct {
	ServerID string     `json:"server_id"`
	ClientID *string    `json:"client_id"`
	Order    int        `json:"order"`
	Reps     *int       `json:"reps"`
	Weight   *float64   `json:"weight"`
	RPE      *float64   `json:"rpe"`
	DoneAt   *time.Time `json:"done_at"`
}

// ExerciseTree is the wire shape of one exercise inside a pulled workout tree.
type ExerciseTree struct {
	ServerID    string    `json:"server_id"`
	ClientID    *string   `json:"client_id"`
	ExerciseID  string    `json:"exercise_id"`
	OrderIndex  int       `json:"order_index"`
	PlannedSets *int      `json:"planned_sets"`
	Sets        []SetTree `json:"sets"`
}

// WorkoutTree is the full current state of one workout with its nested
// exercises and sets. Tombstone events carry the tree too, so a client can
// reconcile local children when it processes the delete.
type WorkoutTree struct {
	ServerID  string               `json:"server_id"`
	ClientID  *string              `json:"client_id"`
	UserID    string               `json:"user_id"`
	Title     string               `json:"title"`
	Status    domain.WorkoutStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	DeletedAt *time.Time           `json:"deleted_at"`
	Exercises []ExerciseTree       `json:"exercises"`
}

// ChangeEvent is one entry of the ordered replay log a pull returns.
type ChangeEvent struct {
	ID        string
	Action    string
	Payload   WorkoutTree
	CreatedAt time.Time
}

// PullResult is the outcome of one incremental pull. ServerTime is captured
// when the response is produced and is the client's next cursor; using the
// newest event's own timestamp instead could skip events written concurrently
// with the read.
type PullResult struct {
	ServerTime time.Time
	Events     []ChangeEvent
}

// SyncService is the offline-first synchronization engine: push replays a
// batch of client mutations idempotently, pull returns the server-side
// changes newer than the client's cursor.
type SyncService interface {
	Push(ctx context.Context, userID primitive.ObjectID, mutations []domain.Mutation) (*PushResult, error)
	Pull(ctx context.Context, userID primitive.ObjectID, since time.Time) (*PullResult, error)
}

// --- Service Implementation ---

type syncService struct {
	workoutRepo  repository.WorkoutRepository
	exerciseRepo repository.WorkoutExerciseRepository
	setRepo      repository.SetRepository
	eventRepo    repository.SyncEventRepository
	tx           repository.TransactionRunner
}

// NewSyncService creates a new instance of syncService.
func NewSyncService(
	workoutRepo repository.WorkoutRepository,
	exerciseRepo repository.WorkoutExerciseRepository,
	setRepo repository.SetRepository,
	eventRepo repository.SyncEventRepository,
	tx repository.TransactionRunner,
) SyncService {
	return &syncService{
		workoutRepo:  workoutRepo,
		exerciseRepo: exerciseRepo,
		setRepo:      setRepo,
		eventRepo:    eventRepo,
		tx:           tx,
	}
}

// === Push (mutation reconciler) ===

// Push applies the batch strictly in the order supplied by the client, inside
// one storage transaction: either every mutation commits or none does.
// Creating actions are idempotent by client id, so a client may safely retry
// the whole batch after a transient failure.
func (s *syncService) Push(ctx context.Context, userID primitive.ObjectID, mutations []domain.Mutation) (*PushResult, error) {
	if len(mutations) == 0 {
		return &PushResult{Processed: 0, ServerTime: time.Now().UTC(), Results: []MutationResult{}}, nil
	}

	if err := validateMutationTimestamps(mutations); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var results []MutationResult

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		// The runner may retry the whole function on a transient transaction
		// error; start from a clean slate each attempt.
		results = results[:0]
		for i := range mutations {
			res, err := s.apply(txCtx, userID, &mutations[i], now)
			if err != nil {
				return err
			}
			if res != nil {
				results = append(results, *res)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if results == nil {
		results = []MutationResult{}
	}
	return &PushResult{
		Processed:  len(mutations),
		ServerTime: time.Now().UTC(),
		Results:    results,
	}, nil
}

// apply dispatches a single mutation. A nil result with nil error means the
// mutation succeeded silently (updates, deletes, and unresolvable targets).
func (s *syncService) apply(ctx context.Context, userID primitive.ObjectID, m *domain.Mutation, now time.Time) (*MutationResult, error) {
	createdAt := now
	if m.CreatedAt != nil {
		createdAt = time.UnixMilli(*m.CreatedAt).UTC()
	}
	data := m.Payload
	if data == nil {
		data = map[string]any{}
	}

	switch m.Action {
	case actionCreateWorkout:
		return s.applyCreateWorkout(ctx, userID, m.QueueID, data, createdAt)
	case actionUpdateTitle:
		return nil, s.applyUpdateTitle(ctx, userID, data, now)
	case actionCompleteWorkout:
		return nil, s.applyCompleteWorkout(ctx, userID, data, now)
	case actionDeleteWorkout:
		return nil, s.applyDeleteWorkout(ctx, userID, data, now)
	case actionAddExercise:
		return s.applyAddExercise(ctx, userID, m.QueueID, data, createdAt, now)
	case actionUpdateExercisePlan:
		return nil, s.applyUpdateExercisePlan(ctx, data, now)
	case actionRemoveExercise:
		return nil, s.applyRemoveExercise(ctx, data)
	case actionAddSet:
		return s.applyAddSet(ctx, userID, m.QueueID, data, createdAt, now)
	case actionUpdateSet:
		return nil, s.applyUpdateSet(ctx, data, now)
	case actionRemoveSet:
		return nil, s.applyRemoveSet(ctx, data)
	default:
		// Unknown actions are never rejected: durably log them so a newer
		// client's mutation kinds survive an older server version.
		return s.applyUnknownAction(ctx, userID, m.QueueID, m.Action, data, createdAt)
	}
}

func (s *syncService) applyCreateWorkout(ctx context.Context, userID primitive.ObjectID, queueID string, data map[string]any, createdAt time.Time) (*MutationResult, error) {
	cid := payloadString(data, "client_id")
	if cid != "" {
		// Duplicate retransmission: return the existing server id, insert nothing.
		existing, err := s.workoutRepo.GetByClientID(ctx, cid)
		if err == nil {
			return &MutationResult{QueueID: queueID, ServerID: existing.ID.Hex()}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	status := domain.WorkoutStatus(payloadString(data, "status"))
	if status == "" {
		status = domain.WorkoutStatusDraft
	}
	createdTs, err := payloadTime(data, "created_at", createdAt)
	if err != nil {
		return nil, err
	}
	updatedTs, err := payloadTime(data, "updated_at", createdAt)
	if err != nil {
		return nil, err
	}
	startedAt, err := payloadTimePtr(data, "started_at")
	if err != nil {
		return nil, err
	}
	endedAt, err := payloadTimePtr(data, "ended_at")
	if err != nil {
		return nil, err
	}

	workout := &domain.Workout{
		UserID:    userID,
		Title:     payloadString(data, "title"),
		Status:    status,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		CreatedAt: createdTs,
		UpdatedAt: updatedTs,
	}
	if cid != "" {
		workout.ClientID = &cid
	}

	id, err := s.workoutRepo.Create(ctx, workout)
	if errors.Is(err, repository.ErrDuplicateClientID) && cid != "" {
		// Lost the race against a concurrent retry of the same batch; the
		// unique index on client id is the final authority.
		existing, ferr := s.workoutRepo.GetByClientID(ctx, cid)
		if ferr != nil {
			return nil, ferr
		}
		return &MutationResult{QueueID: queueID, ServerID: existing.ID.Hex()}, nil
	}
	if err != nil {
		return nil, err
	}
	return &MutationResult{QueueID: queueID, ServerID: id.Hex()}, nil
}

func (s *syncService) applyUpdateTitle(ctx context.Context, userID primitive.ObjectID, data map[string]any, now time.Time) error {
	workout, err := s.findWorkout(ctx, data, userID)
	if err != nil || workout == nil {
		return err
	}
	if v, ok := data["title"]; ok {
		if title, ok := v.(string); ok {
			workout.Title = title
		}
	}
	workout.UpdatedAt, err = payloadTime(data, "updated_at", now)
	if err != nil {
		return err
	}
	return s.workoutRepo.Update(ctx, workout)
}

func (s *syncService) applyCompleteWorkout(ctx context.Context, userID primitive.ObjectID, data map[string]any, now time.Time) error {
	workout, err := s.findWorkout(ctx, data, userID)
	if err != nil || workout == nil {
		return err
	}
	workout.Status = domain.WorkoutStatusCompleted
	workout.UpdatedAt, err = payloadTime(data, "updated_at", now)
	if err != nil {
		return err
	}
	return s.workoutRepo.Update(ctx, workout)
}

func (s *syncService) applyDeleteWorkout(ctx context.Context, userID primitive.ObjectID, data map[string]any, now time.Time) error {
	workout, err := s.findWorkout(ctx, data, userID)
	if err != nil || workout == nil {
		return err
	}
	// Soft delete only: the row must survive so pull can emit a tombstone.
	deletedTs, err := payloadTime(data, "deleted_at", now)
	if err != nil {
		return err
	}
	workout.DeletedAt = &deletedTs
	workout.UpdatedAt, err = payloadTime(data, "updated_at", now)
	if err != nil {
		return err
	}
	return s.workoutRepo.Update(ctx, workout)
}

func (s *syncService) applyAddExercise(ctx context.Context, userID primitive.ObjectID, queueID string, data map[string]any, createdAt, now time.Time) (*MutationResult, error) {
	cid := payloadString(data, "client_id")
	if cid != "" {
		existing, err := s.exerciseRepo.GetByClientID(ctx, cid)
		if err == nil {
			return &MutationResult{QueueID: queueID, ServerID: existing.ID.Hex()}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	workout, err := s.findWorkout(ctx, data, userID)
	if err != nil {
		return nil, err
	}
	if workout == nil {
		// Parent not visible for this caller yet; drop the mutation.
		return nil, nil
	}

	orderIndex, _ := payloadInt(data, "orderIndex")
	exercise := &domain.WorkoutExercise{
		WorkoutID:   workout.ID,
		ExerciseID:  payloadString(data, "exerciseId"),
		OrderIndex:  orderIndex,
		PlannedSets: payloadIntPtr(data, "plannedSets"),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if cid != "" {
		exercise.ClientID = &cid
	}

	id, err := s.exerciseRepo.Create(ctx, exercise)
	if errors.Is(err, repository.ErrDuplicateClientID) && cid != "" {
		existing, ferr := s.exerciseRepo.GetByClientID(ctx, cid)
		if ferr != nil {
			return nil, ferr
		}
		return &MutationResult{QueueID: queueID, ServerID: existing.ID.Hex()}, nil
	}
	if err != nil {
		return nil, err
	}

	workout.UpdatedAt = now
	if err := s.workoutRepo.Update(ctx, workout); err != nil {
		return nil, err
	}
	return &MutationResult{QueueID: queueID, ServerID: id.Hex()}, nil
}

// applyUpdateExercisePlan patches the planned set count. Exercises carry no
// owner field; ownership checks happen at the workout level only.
func (s *syncService) applyUpdateExercisePlan(ctx context.Context, data map[string]any, now time.Time) error {
	exercise, err := s.findExercise(ctx, data)
	if err != nil || exercise == nil {
		return err
	}
	// Only integer values are accepted; anything else clears the plan.
	exercise.PlannedSets = payloadIntPtr(data, "plannedSets")
	exercise.UpdatedAt = now
	return s.exerciseRepo.Update(ctx, exercise)
}

func (s *syncService) applyRemoveExercise(ctx context.Context, data map[string]any) error {
	exercise, err := s.findExercise(ctx, data)
	if err != nil || exercise == nil {
		return err
	}
	// Child sets must go first to avoid dangling references.
	if err := s.setRepo.DeleteByExerciseID(ctx, exercise.ID); err != nil {
		return err
	}
	return s.exerciseRepo.Delete(ctx, exercise.ID)
}

func (s *syncService) applyAddSet(ctx context.Context, userID primitive.ObjectID, queueID string, data map[string]any, createdAt, now time.Time) (*MutationResult, error) {
	cid := payloadString(data, "client_id")
	if cid != "" {
		existing, err := s.setRepo.GetByClientID(ctx, cid)
		if err == nil {
			return &MutationResult{QueueID: queueID, ServerID: existing.ID.Hex()}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	exercise, err := s.findExercise(ctx, data)
	if err != nil {
		return nil, err
	}
	if exercise == nil {
		return nil, nil
	}

	setData := payloadMap(data, "payload")
	order, _ := payloadInt(setData, "order")
	set := &domain.Set{
		WorkoutExerciseID: exercise.ID,
		Order:             order,
		Reps:              payloadIntPtr(setData, "reps"),
		Weight:            payloadFloatPtr(setData, "weight"),
		RPE:               payloadFloatPtr(setData, "rpe"),
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
	if cid != "" {
		set.ClientID = &cid
	}

	id, err := s.setRepo.Create(ctx, set)
	if errors.Is(err, repository.ErrDuplicateClientID) && cid != "" {
		existing, ferr := s.setRepo.GetByClientID(ctx, cid)
		if ferr != nil {
			return nil, ferr
		}
		return &MutationResult{QueueID: queueID, ServerID: existing.ID.Hex()}, nil
	}
	if err != nil {
		return nil, err
	}

	exercise.UpdatedAt = now
	if err := s.exerciseRepo.Update(ctx, exercise); err != nil {
		return nil, err
	}
	return &MutationResult{QueueID: queueID, ServerID: id.Hex()}, nil
}

// applyUpdateSet applies a partial patch: only the fields present in the
// updates sub-object change, everything else is left untouched.
func (s *syncService) applyUpdateSet(ctx context.Context, data map[string]any, now time.Time) error {
	set, err := s.findSet(ctx, data)
	if err != nil || set == nil {
		return err
	}

	updates := payloadMap(data, "updates")
	if _, ok := updates["reps"]; ok {
		set.Reps = payloadIntPtr(updates, "reps")
	}
	if _, ok := updates["weight"]; ok {
		set.Weight = payloadFloatPtr(updates, "weight")
	}
	if _, ok := updates["rpe"]; ok {
		set.RPE = payloadFloatPtr(updates, "rpe")
	}
	if v, ok := updates["done_at"]; ok {
		// A present-but-falsy value means "not done", not the zero time.
		if isFalsy(v) {
			set.DoneAt = nil
		} else {
			ms, err := epochMillis(v)
			if err != nil {
				return err
			}
			doneAt := time.UnixMilli(ms).UTC()
			set.DoneAt = &doneAt
		}
	}
	set.UpdatedAt = now
	return s.setRepo.Update(ctx, set)
}

func (s *syncService) applyRemoveSet(ctx context.Context, data map[string]any) error {
	set, err := s.findSet(ctx, data)
	if err != nil || set == nil {
		return err
	}
	return s.setRepo.Delete(ctx, set.ID)
}

func (s *syncService) applyUnknownAction(ctx context.Context, userID primitive.ObjectID, queueID, action string, data map[string]any, createdAt time.Time) (*MutationResult, error) {
	payloadJSON := ""
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		payloadJSON = string(raw)
	}

	event := &domain.SyncEvent{
		UserID:    userID,
		Action:    action,
		Payload:   payloadJSON,
		CreatedAt: createdAt,
	}
	id, err := s.eventRepo.Create(ctx, event)
	if err != nil {
		return nil, err
	}
	// The event's own id correlates the queue entry, so the client can mark
	// the mutation as delivered even though the server deferred interpretation.
	return &MutationResult{QueueID: queueID, ServerID: id.Hex()}, nil
}

// === Resolution helpers ===

// findWorkout locates a workout by client id first (global lookup), falling
// back to server id, and only returns it when it belongs to the user. A nil
// workout with nil error means "not found for this caller": the mutation
// no-ops, tolerating valid but out-of-order offline batches.
func (s *syncService) findWorkout(ctx context.Context, data map[string]any, userID primitive.ObjectID) (*domain.Workout, error) {
	if cid := payloadFirstString(data, "workoutClientId", "client_id"); cid != "" {
		workout, err := s.workoutRepo.GetByClientID(ctx, cid)
		if err == nil {
			if workout.UserID == userID {
				return workout, nil
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	if id, ok := payloadObjectID(data, "workoutServerId", "workoutId"); ok {
		workout, err := s.workoutRepo.GetByID(ctx, id)
		if err == nil {
			if workout.UserID == userID {
				return workout, nil
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	return nil, nil
}

// findExercise locates a workout exercise by client id or server id.
func (s *syncService) findExercise(ctx context.Context, data map[string]any) (*domain.WorkoutExercise, error) {
	if cid := payloadFirstString(data, "exerciseClientId", "client_id"); cid != "" {
		exercise, err := s.exerciseRepo.GetByClientID(ctx, cid)
		if err == nil {
			return exercise, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	if id, ok := payloadObjectID(data, "workoutExerciseServerId", "workoutExerciseId"); ok {
		exercise, err := s.exerciseRepo.GetByID(ctx, id)
		if err == nil {
			return exercise, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	return nil, nil
}

// findSet locates a set by client id or server id.
func (s *syncService) findSet(ctx context.Context, data map[string]any) (*domain.Set, error) {
	if cid := payloadFirstString(data, "setClientId", "client_id"); cid != "" {
		set, err := s.setRepo.GetByClientID(ctx, cid)
		if err == nil {
			return set, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	if id, ok := payloadObjectID(data, "setServerId", "setId"); ok {
		set, err := s.setRepo.GetByID(ctx, id)
		if err == nil {
			return set, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	return nil, nil
}

// === Pull (change cursor reader) ===

// Pull returns every workout of the user updated strictly after since, oldest
// change first, each with its full current exercise/set tree. The ordering is
// stable for a fixed database state: clients treat the result as an ordered
// replay log.
func (s *syncService) Pull(ctx context.Context, userID primitive.ObjectID, since time.Time) (*PullResult, error) {
	workouts, err := s.workoutRepo.ListUpdatedSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	events := make([]ChangeEvent, 0, len(workouts))
	for i := range workouts {
		workout := &workouts[i]
		tree, err := buildWorkoutTree(ctx, workout, s.exerciseRepo, s.setRepo)
		if err != nil {
			return nil, err
		}

		action := EventWorkoutUpsert
		if workout.IsDeleted() {
			action = EventWorkoutDelete
		}
		events = append(events, ChangeEvent{
			ID:        workout.ID.Hex(),
			Action:    action,
			Payload:   *tree,
			CreatedAt: workout.UpdatedAt,
		})
	}

	return &PullResult{ServerTime: time.Now().UTC(), Events: events}, nil
}

// buildWorkoutTree reassembles the nested exercise/set tree of one workout.
// Shared with the direct workout detail endpoint.
func buildWorkoutTree(ctx context.Context, workout *domain.Workout, exerciseRepo repository.WorkoutExerciseRepository, setRepo repository.SetRepository) (*WorkoutTree, error) {
	exercises, err := exerciseRepo.ListByWorkoutID(ctx, workout.ID)
	if err != nil {
		return nil, err
	}

	exerciseTrees := make([]ExerciseTree, 0, len(exercises))
	for i := range exercises {
		exercise := &exercises[i]
		sets, err := setRepo.ListByExerciseID(ctx, exercise.ID)
		if err != nil {
			return nil, err
		}

		setTrees := make([]SetTree, 0, len(sets))
		for j := range sets {
			set := &sets[j]
			setTrees = append(setTrees, SetTree{
				ServerID: set.ID.Hex(),
				ClientID: set.ClientID,
				Order:    set.Order,
				Reps:     set.Reps,
				Weight:   set.Weight,
				RPE:      set.RPE,
				DoneAt:   set.DoneAt,
			})
		}

		exerciseTrees = append(exerciseTrees, ExerciseTree{
			ServerID:    exercise.ID.Hex(),
			ClientID:    exercise.ClientID,
			ExerciseID:  exercise.ExerciseID,
			OrderIndex:  exercise.OrderIndex,
			PlannedSets: exercise.PlannedSets,
			Sets:        setTrees,
		})
	}

	return &WorkoutTree{
		ServerID:  workout.ID.Hex(),
		ClientID:  workout.ClientID,
		UserID:    workout.UserID.Hex(),
		Title:     workout.Title,
		Status:    workout.Status,
		CreatedAt: workout.CreatedAt,
		UpdatedAt: workout.UpdatedAt,
		DeletedAt: workout.DeletedAt,
		Exercises: exerciseTrees,
	}, nil
}

// === Payload helpers ===
// Mutation payloads are opaque JSON objects; these helpers make each action's
// field-access contract explicit and tolerant of missing or mistyped values.

// actionTimestampKeys maps each action to the payload fields it interprets as
// epoch millis. Actions absent from the map read no top-level timestamps;
// unknown actions in particular carry opaque payloads that are stored
// verbatim, never parsed, so a colliding key name in a newer client's payload
// must not reject the batch.
var actionTimestampKeys = map[string][]string{
	actionCreateWorkout:   {"created_at", "updated_at", "started_at", "ended_at"},
	actionUpdateTitle:     {"updated_at"},
	actionCompleteWorkout: {"updated_at"},
	actionDeleteWorkout:   {"deleted_at", "updated_at"},
}

// validateMutationTimestamps checks, up front, every timestamp field the batch
// will actually read, so a malformed value rejects the batch before any side
// effect. Fields an action never interprets are left alone.
func validateMutationTimestamps(mutations []domain.Mutation) error {
	for i := range mutations {
		m := &mutations[i]
		if m.Payload == nil {
			continue
		}
		for _, key := range actionTimestampKeys[m.Action] {
			if v, ok := m.Payload[key]; ok && v != nil {
				if _, err := epochMillis(v); err != nil {
					return err
				}
			}
		}
		if m.Action == actionUpdateSet {
			updates := payloadMap(m.Payload, "updates")
			if v, ok := updates["done_at"]; ok && !isFalsy(v) {
				if _, err := epochMillis(v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// epochMillis converts a payload value to milliseconds since epoch.
// JSON numbers arrive as float64; tests may supply native ints.
func epochMillis(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, ErrInvalidTimestamp
		}
		return int64(f), nil
	default:
		return 0, ErrInvalidTimestamp
	}
}

// payloadTime reads an epoch-millis field, returning fallback when absent.
func payloadTime(data map[string]any, key string, fallback time.Time) (time.Time, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return fallback, nil
	}
	ms, err := epochMillis(v)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// payloadTimePtr reads an optional epoch-millis field; absent means unset.
func payloadTimePtr(data map[string]any, key string) (*time.Time, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return nil, nil
	}
	ms, err := epochMillis(v)
	if err != nil {
		return nil, err
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

func payloadString(data map[string]any, key string) string {
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func payloadFirstString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := payloadString(data, key); s != "" {
			return s
		}
	}
	return ""
}

func payloadInt(data map[string]any, key string) (int, bool) {
	switch t := data[key].(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	default:
		return 0, false
	}
}

// payloadIntPtr accepts whole numbers only; anything else means unset.
func payloadIntPtr(data map[string]any, key string) *int {
	switch t := data[key].(type) {
	case float64:
		if t != math.Trunc(t) {
			return nil
		}
		n := int(t)
		return &n
	case int:
		n := t
		return &n
	case int64:
		n := int(t)
		return &n
	default:
		return nil
	}
}

func payloadFloatPtr(data map[string]any, key string) *float64 {
	switch t := data[key].(type) {
	case float64:
		f := t
		return &f
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	default:
		return nil
	}
}

// payloadMap returns a nested object field, or an empty map when absent.
func payloadMap(data map[string]any, key string) map[string]any {
	if v, ok := data[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return map[string]any{}
}

// payloadObjectID reads the first usable server id under the given keys.
func payloadObjectID(data map[string]any, keys ...string) (primitive.ObjectID, bool) {
	for _, key := range keys {
		raw := payloadString(data, key)
		if raw == "" {
			continue
		}
		if id, err := primitive.ObjectIDFromHex(raw); err == nil {
			return id, true
		}
	}
	return primitive.NilObjectID, false
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case string:
		return t == ""
	default:
		return false
	}
}
