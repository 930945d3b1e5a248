package api

import (
	"errors"
	"fmt"
	"gorillax/fitness-api/internal/domain"
	"gorillax/fitness-api/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutHandler exposes the direct workout endpoints used by online clients.
type WorkoutHandler struct {
	workoutService service.WorkoutService
}

// NewWorkoutHandler creates a new WorkoutHandler.
func NewWorkoutHandler(workoutService service.WorkoutService) *WorkoutHandler {
	return &WorkoutHandler{workoutService: workoutService}
}

// --- Request/Response Structs ---

type CreateWorkoutRequest struct {
	Title string `json:"title" binding:"required"`
}

type WorkoutResponse struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Status    domain.WorkoutStatus `json:"status"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// --- Handler Methods ---

// CreateWorkout godoc
// @Summary Create a new draft workout
// @Tags Workouts
// @Accept json
// @Produce json
// @Param workout body CreateWorkoutRequest true "Workout details"
// @Success 201 {object} WorkoutResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /workouts [post]
func (h *WorkoutHandler) CreateWorkout(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid authentication context")
		return
	}

	var req CreateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	workout, err := h.workoutService.CreateWorkout(c.Request.Context(), userID, req.Title)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create workout")
		return
	}

	c.JSON(http.StatusCreated, mapWorkoutToResponse(workout))
}

// GetWorkouts godoc
// @Summary List the user's workouts
// @Description Returns live (non-deleted) workouts, most recently updated first.
// @Tags Workouts
// @Produce json
// @Success 200 {array} WorkoutResponse
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /workouts [get]
func (h *WorkoutHandler) GetWorkouts(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid authentication context")
		return
	}

	workouts, err := h.workoutService.ListWorkouts(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list workouts")
		return
	}

	responses := make([]WorkoutResponse, 0, len(workouts))
	for i := range workouts {
		responses = append(responses, mapWorkoutToResponse(&workouts[i]))
	}
	c.JSON(http.StatusOK, responses)
}

// GetWorkoutDetail godoc
// @Summary Get one workout with its full exercise and set tree
// @Tags Workouts
// @Produce json
// @Param id path string true "Workout ID"
// @Success 200 {object} service.WorkoutTree
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Not found"
// @Router /workouts/{id} [get]
func (h *WorkoutHandler) GetWorkoutDetail(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid authentication context")
		return
	}

	workoutID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workout ID format")
		return
	}

	tree, err := h.workoutService.GetWorkout(c.Request.Context(), userID, workoutID)
	if err != nil {
		handleWorkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// DeleteWorkout godoc
// @Summary Soft-delete a workout
// @Description Tombstones the workout; offline clients learn about it on their next pull.
// @Tags Workouts
// @Param id path string true "Workout ID"
// @Success 204 "Deleted"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 404 {object} gin.H "Not found"
// @Router /workouts/{id} [delete]
func (h *WorkoutHandler) DeleteWorkout(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid authentication context")
		return
	}

	workoutID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workout ID format")
		return
	}

	if err := h.workoutService.DeleteWorkout(c.Request.Context(), userID, workoutID); err != nil {
		handleWorkoutError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func handleWorkoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkoutNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

func mapWorkoutToResponse(workout *domain.Workout) WorkoutResponse {
	return WorkoutResponse{
		ID:        workout.ID.Hex(),
		Title:     workout.Title,
		Status:    workout.Status,
		CreatedAt: workout.CreatedAt,
		UpdatedAt: workout.UpdatedAt,
	}
}
