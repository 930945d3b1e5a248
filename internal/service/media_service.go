package service

import (
	"context"
	"errors"
	"fmt"
	"gorillax/fitness-api/internal/domain"
	"gorillax/fitness-api/internal/repository"
	"gorillax/fitness-api/internal/storage"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUploadNotFound     = errors.New("upload not found")
	ErrUploadAccessDenied = errors.New("upload does not belong to this user")
)

// UploadTicket is what a client needs to push a file straight to object
// storage: a presigned PUT URL and the key to confirm with afterwards.
type UploadTicket struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// MediaService handles progress photos and workout videos via presigned S3
// URLs; file bytes never pass through the API server.
type MediaService interface {
	RequestUploadURL(ctx context.Context, userID primitive.ObjectID, fileName, contentType string) (*UploadTicket, error)
	ConfirmUpload(ctx context.Context, userID primitive.ObjectID, objectKey, fileName, contentType string, size int64, workoutID *primitive.ObjectID) (*domain.Upload, error)
	GetDownloadURL(ctx context.Context, userID, uploadID primitive.ObjectID) (string, error)
	DeleteUpload(ctx context.Context, userID, uploadID primitive.ObjectID) error
}

type mediaService struct {
	uploadRepo  repository.UploadRepository
	fileStorage storage.FileStorage
}

// NewMediaService creates a new instance of MediaService.
func NewMediaService(uploadRepo repository.UploadRepository, fileStorage storage.FileStorage) MediaService {
	return &mediaService{
		uploadRepo:  uploadRepo,
		fileStorage: fileStorage,
	}
}

// RequestUploadURL issues a presigned PUT URL under a fresh object key scoped
// to the user. Nothing is persisted until the client confirms the upload.
func (s *mediaService) RequestUploadURL(ctx context.Context, userID primitive.ObjectID, fileName, contentType string) (*UploadTicket, error) {
	ext := filepath.Ext(fileName)
	objectKey := fmt.Sprintf("media/%s/%s%s", userID.Hex(), uuid.NewString(), ext)

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}
	return &UploadTicket{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmUpload records the uploaded object against the user, optionally
// attached to a workout.
func (s *mediaService) ConfirmUpload(ctx context.Context, userID primitive.ObjectID, objectKey, fileName, contentType string, size int64, workoutID *primitive.ObjectID) (*domain.Upload, error) {
	upload := &domain.Upload{
		UserID:      userID,
		WorkoutID:   workoutID,
		S3ObjectKey: objectKey,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  time.Now().UTC(),
	}

	id, err := s.uploadRepo.Create(ctx, upload)
	if err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}
	upload.ID = id
	return upload, nil
}

// GetDownloadURL presigns a GET URL for an upload the user owns.
func (s *mediaService) GetDownloadURL(ctx context.Context, userID, uploadID primitive.ObjectID) (string, error) {
	upload, err := s.uploadRepo.GetByID(ctx, uploadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUploadNotFound
		}
		return "", fmt.Errorf("error fetching upload: %w", err)
	}
	if upload.UserID != userID {
		return "", ErrUploadAccessDenied
	}

	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, upload.S3ObjectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return url, nil
}

// DeleteUpload removes an upload the user owns: the S3 object first, then the
// metadata row. A dangling metadata row (object gone, row present) is worse
// than the reverse, so the object goes first.
func (s *mediaService) DeleteUpload(ctx context.Context, userID, uploadID primitive.ObjectID) error {
	upload, err := s.uploadRepo.GetByID(ctx, uploadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUploadNotFound
		}
		return fmt.Errorf("error fetching upload: %w", err)
	}
	if upload.UserID != userID {
		return ErrUploadAccessDenied
	}

	if err := s.fileStorage.DeleteObject(ctx, upload.S3ObjectKey); err != nil {
		return fmt.Errorf("failed to delete stored object: %w", err)
	}
	return s.uploadRepo.Delete(ctx, uploadID)
}
