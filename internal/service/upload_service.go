package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"piaoju/internal/config"
	"piaoju/internal/domain"
	"piaoju/internal/port"
)

// FileUploadInput is the DTO for source-document upload requests.
type FileUploadInput struct {
	UserID uuid.UUID
	File   multipart.File
	Header *multipart.FileHeader
}

// UploadService stores source documents and yields the file metadata that
// accompanies a transformation request.
type UploadService interface {
	Upload(ctx context.Context, input FileUploadInput) (*domain.FileMetadata, error)
	GetDownloadURL(ctx context.Context, filePath string) (string, error)
}

type uploadService struct {
	storage port.ObjectStorage
	cfg     *config.S3Config
}

// NewUploadService creates a new UploadService implementation.
func NewUploadService(storage port.ObjectStorage, cfg *config.S3Config) UploadService {
	return &uploadService{storage: storage, cfg: cfg}
}

func (s *uploadService) Upload(ctx context.Context, input FileUploadInput) (*domain.FileMetadata, error) {
	// Validate file extension
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Header.Filename), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	// Validate file size
	maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024
	if input.Header.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(input.File)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	// Magic-byte content type detection
	detectedType := http.DetectContentType(data[:min(len(data), 512)])
	if _, valid := domain.AllowedContentTypes[detectedType]; !valid {
		return nil, domain.ErrUnsupportedFileType
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	fileID := uuid.New()
	key := fmt.Sprintf("users/%s/invoices/%s/%s", input.UserID, fileID, input.Header.Filename)
	contentType := domain.AllowedFileTypes[fileType]

	log.Printf("uploadService.Upload: uploading %s (%s, %d bytes) for user %s",
		input.Header.Filename, contentType, input.Header.Size, input.UserID)

	out, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(data),
		ContentType: contentType,
		Size:        int64(len(data)),
	})
	if err != nil {
		log.Printf("uploadService.Upload: S3 upload failed for %s: %v", key, err)
		return nil, domain.ErrUploadFailed
	}

	return &domain.FileMetadata{
		UserID:   input.UserID,
		FilePath: key,
		FileName: input.Header.Filename,
		FileSize: int64(len(data)),
		FileHash: hash,
		FileURL:  out.Location,
	}, nil
}

func (s *uploadService) GetDownloadURL(ctx context.Context, filePath string) (string, error) {
	return s.storage.GetPresignedURL(ctx, s.cfg.Bucket, filePath, s.cfg.PresignExpiry)
}
