package storage

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/logging"
)

// FileStore is the file:// backend: artifacts live under root on the
// local filesystem. Before any Put it checks root's disk usage against
// the warn/block thresholds the teacher's controller.calculateDiskUsage
// computes via gopsutil, generalized from a metrics read into a gate.
type FileStore struct {
	root         string
	warnPercent  int
	blockPercent int
	logger       *logging.Logger
}

// NewFileStore constructs a FileStore rooted at cfg-provided thresholds.
func NewFileStore(root string, cfg config.StorageConfig, logger *logging.Logger) *FileStore {
	return &FileStore{
		root:         root,
		warnPercent:  cfg.WarnPercent,
		blockPercent: cfg.BlockPercent,
		logger:       logger,
	}
}

func (s *FileStore) pathFor(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return "", apperrors.Storage("FileStore", "invalid file:// uri", err)
	}
	rel := filepath.Join(u.Host, u.Path)
	return filepath.Join(s.root, rel), nil
}

// checkDiskUsage blocks Put once usage exceeds blockPercent, and logs a
// warning once it exceeds warnPercent, mirroring the teacher's
// calculateDiskUsage percentage computation.
func (s *FileStore) checkDiskUsage() error {
	usage, err := disk.Usage(s.root)
	if err != nil {
		usage, err = disk.Usage(".")
		if err != nil {
			s.logger.WithError(err).Warn("failed to get disk usage, allowing write")
			return nil
		}
	}
	if usage.Total == 0 {
		return nil
	}
	percentUsed := usage.UsedPercent
	if s.blockPercent > 0 && percentUsed >= float64(s.blockPercent) {
		return apperrors.Storage("FileStore.checkDiskUsage",
			"disk usage exceeds block threshold", nil)
	}
	if s.warnPercent > 0 && percentUsed >= float64(s.warnPercent) {
		s.logger.WithField("percent_used", percentUsed).Warn("disk usage above warn threshold")
	}
	return nil
}

// Put writes data to the path encoded in uri, computing an MD5 checksum.
func (s *FileStore) Put(ctx context.Context, uri string, data io.Reader, contentType string) (Object, error) {
	if err := s.checkDiskUsage(); err != nil {
		return Object{}, err
	}
	path, err := s.pathFor(uri)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Object{}, apperrors.Storage("FileStore.Put", "failed to create directory", err)
	}

	var obj Object
	err = withRetry(ctx, func(ctx context.Context) error {
		f, err := os.Create(path)
		if err != nil {
			return apperrors.Storage("FileStore.Put", "failed to create file", err)
		}
		defer f.Close()

		hashed, sum := newHashingReader(data)
		n, err := io.Copy(f, hashed)
		if err != nil {
			return apperrors.Storage("FileStore.Put", "failed to write file", err)
		}
		obj = Object{URI: uri, Size: n, ContentType: contentType, Checksum: sum()}
		return nil
	})
	return obj, err
}

// Get opens the path encoded in uri for reading.
func (s *FileStore) Get(ctx context.Context, uri string) (io.ReadCloser, Object, error) {
	path, err := s.pathFor(uri)
	if err != nil {
		return nil, Object{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Object{}, apperrors.NotFound("FileStore.Get", "artifact not found")
		}
		return nil, Object{}, apperrors.Storage("FileStore.Get", "failed to open file", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Object{}, apperrors.Storage("FileStore.Get", "failed to stat file", err)
	}
	return f, Object{URI: uri, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Stat returns metadata for uri without opening its contents for reading.
func (s *FileStore) Stat(ctx context.Context, uri string) (Object, error) {
	path, err := s.pathFor(uri)
	if err != nil {
		return Object{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Object{}, apperrors.NotFound("FileStore.Stat", "artifact not found")
		}
		return Object{}, apperrors.Storage("FileStore.Stat", "failed to stat file", err)
	}
	return Object{URI: uri, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Delete removes the path encoded in uri. A missing file is not an error.
func (s *FileStore) Delete(ctx context.Context, uri string) error {
	path, err := s.pathFor(uri)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperrors.Storage("FileStore.Delete", "failed to remove file", err)
	}
	return nil
}
