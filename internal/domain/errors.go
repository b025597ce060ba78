package domain

import "errors"

var (
	ErrNotFound             = errors.New("resource not found")
	ErrInvoiceAlreadyExists = errors.New("invoice with this number already exists")
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrFileTooLarge         = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed         = errors.New("file upload to storage failed")
)
