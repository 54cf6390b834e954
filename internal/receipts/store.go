package receipts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/HelloBroCode/web-tracker1/internal/log"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".pdf":  true,
}

// Store saves receipt files under a per-user directory with generated
// names. The stored path is relative to the base directory so a
// database row survives the base moving.
type Store struct {
	baseDir string
	logger  *log.Logger
}

func NewStore(baseDir string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create receipt directory: %w", err)
	}
	return &Store{
		baseDir: baseDir,
		logger:  logger.WithComponent(log.ComponentReceipts),
	}, nil
}

// Allowed reports whether the filename carries an accepted extension.
func Allowed(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// AllowedTypes lists the accepted extensions without dots, for error
// messages.
func AllowedTypes() string {
	return "png, jpg, jpeg, pdf"
}

// Save writes the uploaded file and returns its store-relative path.
// oldPath, when non-empty, names a previous receipt to remove; a
// failed removal is logged and ignored.
func (s *Store) Save(userID int64, filename string, r io.Reader, oldPath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("invalid file type %q, allowed types: %s", ext, AllowedTypes())
	}

	userDir := filepath.Join(s.baseDir, strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(userDir, 0755); err != nil {
		return "", fmt.Errorf("create user receipt directory: %w", err)
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	fullPath := filepath.Join(userDir, name)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("write receipt file: %w", err)
	}

	if oldPath != "" {
		if err := os.Remove(filepath.Join(s.baseDir, oldPath)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove old receipt",
				"path", oldPath,
				log.FieldError, err)
		}
	}

	relPath := filepath.Join(strconv.FormatInt(userID, 10), name)
	s.logger.Info("receipt saved",
		log.FieldUserID, userID,
		"path", relPath)
	return relPath, nil
}

// Open returns the receipt file for a stored path.
func (s *Store) Open(relPath string) (*os.File, error) {
	clean := filepath.Clean(relPath)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("invalid receipt path %q", relPath)
	}
	return os.Open(filepath.Join(s.baseDir, clean))
}
