package photo_store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store keeps report photos as files in one directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New creates the photo directory if needed.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Save writes the photo under a unique name and returns its reference.
func (s *Store) Save(ctx context.Context, reporterID int64, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := strconv.FormatInt(reporterID, 10) + "_" + uuid.NewString() + ".jpg"
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo: %w", err)
	}

	s.logger.Debug("Photo saved", zap.Int64("reporter_id", reporterID), zap.String("path", path))
	return path, nil
}

// Remove deletes a photo that no report owns. A missing file is not an error.
func (s *Store) Remove(ref string) error {
	if ref == "" {
		return nil
	}
	if err := os.Remove(ref); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove photo: %w", err)
	}
	return nil
}
