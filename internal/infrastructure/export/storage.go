package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArtifactStorage stores rendered export artifacts and hands back the
// location recorded on the report
type ArtifactStorage interface {
	// Store saves an artifact and returns its location
	Store(ctx context.Context, req *StoreRequest) (*StoreResult, error)
	// Get retrieves a stored artifact
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes a stored artifact
	Delete(ctx context.Context, path string) error
	// URL returns the accessible URL for a stored artifact
	URL(path string) string
}

// StoreRequest contains the parameters for storing an export artifact
type StoreRequest struct {
	// CompanyID scopes the artifact to its owning company
	CompanyID uuid.UUID
	// ReportID is the summary report the artifact was rendered from
	ReportID uuid.UUID
	// FileName is the artifact file name, extension included
	FileName string
	// ContentType of the artifact
	ContentType string
	// Data is the rendered artifact content
	Data []byte
}

// StoreResult contains the result of storing an artifact
type StoreResult struct {
	// Path is the storage path (relative to the backend's base)
	Path string
	// URL is the accessible URL for the artifact
	URL string
	// Size is the artifact size in bytes
	Size int64
}

// FilesystemStorageConfig contains configuration for filesystem storage
type FilesystemStorageConfig struct {
	// BasePath is the root directory for artifacts. Default: /data/exports
	BasePath string
	// BaseURL is the URL prefix under which artifacts are served
	BaseURL string
	// Logger for operations
	Logger *zap.Logger
}

// FilesystemStorage stores export artifacts on the local file system
type FilesystemStorage struct {
	config *FilesystemStorageConfig
	logger *zap.Logger
}

// NewFilesystemStorage creates a new file system based artifact storage
func NewFilesystemStorage(config *FilesystemStorageConfig) (*FilesystemStorage, error) {
	if config == nil {
		config = &FilesystemStorageConfig{}
	}
	if config.BasePath == "" {
		config.BasePath = "/data/exports"
	}
	if config.BaseURL == "" {
		config.BaseURL = "/api/v1/exports"
	}

	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", config.BasePath, err)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FilesystemStorage{config: config, logger: logger}, nil
}

// Store saves an artifact to the file system.
// Path structure: {base}/{company_id}/{report_id}/{file_name}
func (s *FilesystemStorage) Store(ctx context.Context, req *StoreRequest) (*StoreResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := validateStoreRequest(req); err != nil {
		return nil, err
	}

	relPath := filepath.Join(req.CompanyID.String(), req.ReportID.String(), req.FileName)
	fullPath := filepath.Join(s.config.BasePath, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	// Write to a temp file first so readers never observe a partial artifact
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".export-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(req.Data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("failed to finalize artifact: %w", err)
	}

	s.logger.Debug("Export artifact stored",
		zap.String("path", relPath),
		zap.Int("size", len(req.Data)))

	return &StoreResult{
		Path: relPath,
		URL:  s.URL(relPath),
		Size: int64(len(req.Data)),
	}, nil
}

// Get retrieves a stored artifact by its relative path
func (s *FilesystemStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact not found: %s", path)
		}
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return f, nil
}

// Delete removes a stored artifact
func (s *FilesystemStorage) Delete(ctx context.Context, path string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// URL returns the accessible URL for a stored artifact
func (s *FilesystemStorage) URL(path string) string {
	return strings.TrimSuffix(s.config.BaseURL, "/") + "/" + filepath.ToSlash(path)
}

// resolve maps a relative artifact path to an absolute one, rejecting
// anything that escapes the base directory
func (s *FilesystemStorage) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("artifact path is required")
	}
	fullPath := filepath.Join(s.config.BasePath, filepath.Clean("/"+path))
	if !strings.HasPrefix(fullPath, filepath.Clean(s.config.BasePath)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid artifact path: %s", path)
	}
	return fullPath, nil
}

func validateStoreRequest(req *StoreRequest) error {
	if req == nil {
		return fmt.Errorf("store request is nil")
	}
	if req.CompanyID == uuid.Nil {
		return fmt.Errorf("company ID is required")
	}
	if req.ReportID == uuid.Nil {
		return fmt.Errorf("report ID is required")
	}
	if req.FileName == "" || strings.ContainsAny(req.FileName, "/\\") {
		return fmt.Errorf("invalid artifact file name: %q", req.FileName)
	}
	if len(req.Data) == 0 {
		return fmt.Errorf("artifact content is empty")
	}
	return nil
}

// CleanupOlderThan removes artifacts older than the given age and returns
// how many files were deleted. Empty company/report directories are left
// in place.
func (s *FilesystemStorage) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	removed := 0

	err := filepath.Walk(s.config.BasePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if info.IsDir() || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Failed to remove expired artifact",
				zap.String("path", path), zap.Error(err))
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("artifact cleanup failed: %w", err)
	}
	return removed, nil
}
