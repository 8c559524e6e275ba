package storage

import (
	"context"
	"io"
	"time"
)

// Uploader stores call artifacts (recordings) and returns a URL the frontend
// can fetch directly.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (url string, err error)
	UploadBytes(ctx context.Context, objectName string, contentType string, data []byte) (url string, err error)
}

type Signer interface {
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}
