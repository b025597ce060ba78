package service_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"piaoju/internal/config"
	"piaoju/internal/domain"
	"piaoju/internal/port"
	"piaoju/internal/service"
	"piaoju/mocks"
)

func testS3Config() config.S3Config {
	return config.S3Config{
		Region:        "cn-north-1",
		Bucket:        "test-bucket",
		MaxFileSizeMB: 50,
		PresignExpiry: 3600,
	}
}

// createMultipartFile creates a fake multipart file header and content for testing.
func createMultipartFile(t *testing.T, filename string, content []byte, contentType string) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)

	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write(content)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	file, err := form.File["file"][0].Open()
	require.NoError(t, err)
	return file, form.File["file"][0]
}

// pdfContent returns minimal valid PDF bytes.
func pdfContent() []byte {
	return []byte("%PDF-1.4 test content that is at least a few bytes long for detection purposes")
}

// pngContent returns minimal valid PNG bytes (magic bytes).
func pngContent() []byte {
	header := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	return append(header, bytes.Repeat([]byte{0x00}, 100)...)
}

func TestUploadService_Upload_PDF(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	cfg := testS3Config()
	svc := service.NewUploadService(storage, &cfg)

	userID := uuid.New()
	file, header := createMultipartFile(t, "invoice.pdf", pdfContent(), "application/pdf")
	defer file.Close()

	storage.On("Upload", mock.Anything, mock.AnythingOfType("port.UploadInput")).
		Return(&port.UploadOutput{Location: "https://test-bucket.s3.amazonaws.com/x", ETag: "abc"}, nil)

	meta, err := svc.Upload(context.Background(), service.FileUploadInput{
		UserID: userID,
		File:   file,
		Header: header,
	})
	require.NoError(t, err)
	assert.Equal(t, userID, meta.UserID)
	assert.Equal(t, "invoice.pdf", meta.FileName)
	assert.Equal(t, int64(len(pdfContent())), meta.FileSize)
	assert.NotEmpty(t, meta.FileHash)
	assert.Contains(t, meta.FilePath, "users/"+userID.String()+"/invoices/")
	assert.Equal(t, "https://test-bucket.s3.amazonaws.com/x", meta.FileURL)
}

func TestUploadService_Upload_PNG(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	cfg := testS3Config()
	svc := service.NewUploadService(storage, &cfg)

	file, header := createMultipartFile(t, "scan.png", pngContent(), "image/png")
	defer file.Close()

	storage.On("Upload", mock.Anything, mock.Anything).
		Return(&port.UploadOutput{Location: "loc"}, nil)

	meta, err := svc.Upload(context.Background(), service.FileUploadInput{
		UserID: uuid.New(),
		File:   file,
		Header: header,
	})
	require.NoError(t, err)
	assert.Equal(t, "scan.png", meta.FileName)
}

func TestUploadService_Upload_RejectsUnsupportedExtension(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	cfg := testS3Config()
	svc := service.NewUploadService(storage, &cfg)

	file, header := createMultipartFile(t, "notes.txt", []byte("plain text"), "text/plain")
	defer file.Close()

	_, err := svc.Upload(context.Background(), service.FileUploadInput{
		UserID: uuid.New(),
		File:   file,
		Header: header,
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUploadService_Upload_RejectsMismatchedContent(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	cfg := testS3Config()
	svc := service.NewUploadService(storage, &cfg)

	// .pdf extension but plain-text bytes
	file, header := createMultipartFile(t, "fake.pdf", []byte("just some text, no magic bytes here"), "application/pdf")
	defer file.Close()

	_, err := svc.Upload(context.Background(), service.FileUploadInput{
		UserID: uuid.New(),
		File:   file,
		Header: header,
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestUploadService_Upload_RejectsOversizedFile(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	cfg := testS3Config()
	cfg.MaxFileSizeMB = 0
	svc := service.NewUploadService(storage, &cfg)

	file, header := createMultipartFile(t, "big.pdf", pdfContent(), "application/pdf")
	defer file.Close()

	_, err := svc.Upload(context.Background(), service.FileUploadInput{
		UserID: uuid.New(),
		File:   file,
		Header: header,
	})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestUploadService_Upload_StorageFailure(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	cfg := testS3Config()
	svc := service.NewUploadService(storage, &cfg)

	file, header := createMultipartFile(t, "invoice.pdf", pdfContent(), "application/pdf")
	defer file.Close()

	storage.On("Upload", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	_, err := svc.Upload(context.Background(), service.FileUploadInput{
		UserID: uuid.New(),
		File:   file,
		Header: header,
	})
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
}

func TestUploadService_GetDownloadURL(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	cfg := testS3Config()
	svc := service.NewUploadService(storage, &cfg)

	storage.On("GetPresignedURL", mock.Anything, "test-bucket", "users/u/invoices/f/a.pdf", int64(3600)).
		Return("https://signed", nil)

	url, err := svc.GetDownloadURL(context.Background(), "users/u/invoices/f/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://signed", url)
}
