package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LocalStore files bills under a root directory on disk.
type LocalStore struct {
	root string
	now  func() time.Time
}

// NewLocal creates a LocalStore rooted at root.
func NewLocal(root string) *LocalStore {
	return &LocalStore{root: root, now: time.Now}
}

// WithNow fixes the clock used for collision suffixes.
func (s *LocalStore) WithNow(t time.Time) *LocalStore {
	s.now = func() time.Time { return t }
	return s
}

// Save implements Storage. The returned path includes the root.
func (s *LocalStore) Save(_ context.Context, key Key, content []byte) (string, error) {
	dest := filepath.Join(s.root, filepath.FromSlash(Path(key)))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrapf(err, "storage: create dir for %s", dest)
	}

	info, err := os.Stat(dest)
	switch {
	case err == nil && info.Size() == int64(len(content)):
		zap.L().Info("storage: bill already filed", zap.String("path", dest))
		return dest, nil
	case err == nil:
		dest = withTimestamp(dest, s.now())
	case !os.IsNotExist(err):
		return "", eris.Wrapf(err, "storage: stat %s", dest)
	}

	if err := os.WriteFile(dest, content, 0o644); err != nil {
		return "", eris.Wrapf(err, "storage: write %s", dest)
	}
	zap.L().Info("storage: filed bill", zap.String("path", dest), zap.Int("bytes", len(content)))
	return dest, nil
}
