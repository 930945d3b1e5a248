package api

import (
	"errors"
	"fmt"
	"gorillax/fitness-api/internal/domain"
	"gorillax/fitness-api/internal/service"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// SyncHandler exposes the offline-first synchronization endpoints.
type SyncHandler struct {
	syncService service.SyncService
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncService service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// --- Request/Response Structs ---

type SyncMutationRequest struct {
	QueueID string `json:"queue_id" binding:"required"`
	Action  string `json:"action" binding:"required"`
	// Payload is intentionally schemaless; each action interprets its own fields.
	Payload map[string]any `json:"payload"`
	// CreatedAt is the client-side capture time in epoch millis.
	CreatedAt *int64 `json:"created_at"`
}

type SyncPushRequest struct {
	Mutations []SyncMutationRequest `json:"mutations" binding:"required"`
}

type SyncPushResponse struct {
	Processed  int                      `json:"processed"`
	ServerTime int64                    `json:"server_time"`
	Results    []service.MutationResult `json:"results"`
}

type SyncEventResponse struct {
	ID        string              `json:"id"`
	Action    string              `json:"action"`
	Payload   service.WorkoutTree `json:"payload"`
	CreatedAt int64               `json:"created_at"`
}

type SyncPullResponse struct {
	ServerTime int64               `json:"server_time"`
	Events     []SyncEventResponse `json:"events"`
}

// --- Handler Methods ---

// Push godoc
// @Summary Push a batch of offline mutations
// @Description Replays the client's mutation queue in order, atomically and idempotently.
// @Tags Sync
// @Accept json
// @Produce json
// @Param batch body SyncPushRequest true "Mutation batch"
// @Success 200 {object} SyncPushResponse "Batch applied"
// @Failure 400 {object} gin.H "Invalid input or malformed timestamp"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /sync/push [post]
func (h *SyncHandler) Push(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid authentication context")
		return
	}

	var req SyncPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	mutations := make([]domain.Mutation, 0, len(req.Mutations))
	for _, m := range req.Mutations {
		mutations = append(mutations, domain.Mutation{
			QueueID:   m.QueueID,
			Action:    m.Action,
			Payload:   m.Payload,
			CreatedAt: m.CreatedAt,
		})
	}

	result, err := h.syncService.Push(c.Request.Context(), userID, mutations)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTimestamp) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to apply mutation batch")
		}
		return
	}

	c.JSON(http.StatusOK, SyncPushResponse{
		Processed:  result.Processed,
		ServerTime: result.ServerTime.UnixMilli(),
		Results:    result.Results,
	})
}

// Pull godoc
// @Summary Pull server-side changes since a cursor
// @Description Returns every workout changed after the given epoch-millis cursor, oldest first.
// @Tags Sync
// @Produce json
// @Param since query int false "Cursor in epoch millis (default 0 for a full snapshot)"
// @Success 200 {object} SyncPullResponse "Change log"
// @Failure 400 {object} gin.H "Invalid cursor"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /sync/pull [get]
func (h *SyncHandler) Pull(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid authentication context")
		return
	}

	sinceMillis, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil || sinceMillis < 0 {
		abortWithError(c, http.StatusBadRequest, "Invalid 'since' cursor: must be a non-negative integer (epoch millis)")
		return
	}
	since := time.UnixMilli(sinceMillis).UTC()

	result, err := h.syncService.Pull(c.Request.Context(), userID, since)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read change log")
		return
	}

	events := make([]SyncEventResponse, 0, len(result.Events))
	for _, e := range result.Events {
		events = append(events, SyncEventResponse{
			ID:        e.ID,
			Action:    e.Action,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt.UnixMilli(),
		})
	}

	c.JSON(http.StatusOK, SyncPullResponse{
		ServerTime: result.ServerTime.UnixMilli(),
		Events:     events,
	})
}
