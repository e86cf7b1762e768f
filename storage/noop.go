package storage

import (
	"context"
	"errors"
	"io"
)

var ErrStorageDisabled = errors.New("object storage is not configured")

type noopUploader struct{}

// NewNoopUploader returns an uploader that rejects every write. It lets the
// server run without object storage credentials.
func NewNoopUploader() FileUploader {
	return noopUploader{}
}

func (noopUploader) Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error) {
	return nil, ErrStorageDisabled
}

func (noopUploader) Delete(ctx context.Context, key string) error {
	return ErrStorageDisabled
}

func (noopUploader) GetPublicURL(key string) string {
	return ""
}
