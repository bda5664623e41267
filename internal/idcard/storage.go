package idcard

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Storage writes rendered card images under <root>/idcard. Writes go to a
// temp file first and are renamed into place after fsync, so a member row
// never references a partially written file.
type Storage struct {
	dir string
}

func NewStorage(root string) (*Storage, error) {
	dir := filepath.Join(root, "idcard")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Save durably writes the image and returns its path.
func (s *Storage) Save(img []byte) (string, error) {
	final := filepath.Join(s.dir, fmt.Sprintf("idcard-%s.png", uuid.NewString()))

	tmp, err := os.CreateTemp(s.dir, "idcard-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp image: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(img); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("sync image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close image: %w", err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("finalize image: %w", err)
	}
	return final, nil
}

// Remove deletes a stored image. A missing file is not an error: the update
// path removes superseded images best-effort.
func (s *Storage) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}
