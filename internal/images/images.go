// Package images uploads scan captures and returns the reference stored on
// the Entry. The engine only ever sees the returned path.
package images

import (
	"context"
	"errors"
)

// ErrNoImage is returned when the local capture is missing.
var ErrNoImage = errors.New("images: local capture not found")

// Uploader stores the capture at localPath for entryID and returns its
// remote reference.
type Uploader interface {
	Upload(ctx context.Context, entryID, localPath string) (string, error)
}

var (
	_ Uploader = (*S3Uploader)(nil)
	_ Uploader = (*DirUploader)(nil)
)
