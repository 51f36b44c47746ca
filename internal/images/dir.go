package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirUploader copies captures into a local directory. It stands in for S3
// when no bucket is configured.
type DirUploader struct {
	root string
}

// NewDirUploader returns an uploader writing under root.
func NewDirUploader(root string) *DirUploader {
	return &DirUploader{root: root}
}

// Upload copies the capture to <root>/<entryID><ext> and returns that path.
func (u *DirUploader) Upload(ctx context.Context, entryID, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := os.Open(localPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNoImage, localPath)
	}
	if err != nil {
		return "", fmt.Errorf("open capture: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(u.root, 0o755); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}
	dst := filepath.Join(u.root, entryID+strings.ToLower(filepath.Ext(localPath)))
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create image copy: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", fmt.Errorf("copy capture: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close image copy: %w", err)
	}
	return dst, nil
}
