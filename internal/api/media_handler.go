package api

import (
	"errors"
	"fmt"
	"gorillax/fitness-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaHandler exposes presigned-URL based media upload and download.
type MediaHandler struct {
	mediaService service.MediaService
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaService service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// --- Request/Response Structs ---

type RequestUploadRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

type ConfirmUploadRequest struct {
	ObjectKey   string `json:"objectKey" binding:"required"`
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
	Size        int64  `json:"size" binding:"required,min=1"`
	WorkoutID   string `json:"workoutId"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// --- Handler Methods ---

// RequestUpload godoc
// @Summary Request a presigned upload URL for a media file
// @Tags Media
// @Accept json
// @Produce json
// @Param upload body RequestUploadRequest true "File details"
// @Success 200 {object} service.UploadTicket
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /media/upload-url [post]
func (h *MediaHandler) RequestUpload(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid authentication context")
		return
	}

	var req RequestUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	ticket, err := h.mediaService.RequestUploadURL(c.Request.Context(), userID, req.FileName, req.ContentType)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to generate upload URL")
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ConfirmUpload godoc
// @Summary Confirm a completed upload
// @Tags Media
// @Accept json
// @Produce json
// @Param upload body ConfirmUploadRequest true "Uploaded object details"
// @Success 201 {object} domain.Upload
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /media/confirm [post]
func (h *MediaHandler) ConfirmUpload(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid authentication context")
		return
	}

	var req ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	var workoutID *primitive.ObjectID
	if req.WorkoutID != "" {
		id, err := primitive.ObjectIDFromHex(req.WorkoutID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid workout ID format")
			return
		}
		workoutID = &id
	}

	upload, err := h.mediaService.ConfirmUpload(c.Request.Context(), userID, req.ObjectKey, req.FileName, req.ContentType, req.Size, workoutID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to record upload")
		return
	}
	c.JSON(http.StatusCreated, upload)
}

// GetDownloadURL godoc
// @Summary Get a presigned download URL for an upload
// @Tags Media
// @Produce json
// @Param id path string true "Upload ID"
// @Success 200 {object} DownloadURLResponse
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Not found"
// @Router /media/{id}/download-url [get]
func (h *MediaHandler) GetDownloadURL(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid authentication context")
		return
	}

	uploadID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid upload ID format")
		return
	}

	url, err := h.mediaService.GetDownloadURL(c.Request.Context(), userID, uploadID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrUploadAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to generate download URL")
		}
		return
	}
	c.JSON(http.StatusOK, DownloadURLResponse{DownloadURL: url})
}

// DeleteUpload godoc
// @Summary Delete an upload and its stored object
// @Tags Media
// @Param id path string true "Upload ID"
// @Success 204 "Deleted"
// @Failure 401 {object} gin.H "Unauthorized"
// @Failure 403 {object} gin.H "Forbidden"
// @Failure 404 {object} gin.H "Not found"
// @Router /media/{id} [delete]
func (h *MediaHandler) DeleteUpload(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid authentication context")
		return
	}

	uploadID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid upload ID format")
		return
	}

	if err := h.mediaService.DeleteUpload(c.Request.Context(), userID, uploadID); err != nil {
		switch {
		case errors.Is(err, service.ErrUploadNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrUploadAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to delete upload")
		}
		return
	}
	c.Status(http.StatusNoContent)
}
