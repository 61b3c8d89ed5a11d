package drafts

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendS3     = "s3"
)

// Backends lists the names Open understands.
func Backends() []string {
	return []string{BackendMemory, BackendFile, BackendSQLite, BackendRedis, BackendS3}
}

// Open returns the store named by kind. The dsn is a directory for file, a
// database path for sqlite, a redis:// URL for redis and bucket[/prefix] for
// s3. An empty dsn for file and sqlite falls back to dataDir.
func Open(ctx context.Context, kind, dsn, dataDir string, log *zap.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", BackendFile:
		if dsn == "" {
			dsn = filepath.Join(dataDir, "drafts")
		}
		return NewFileStore(dsn, log)
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		if dsn == "" {
			dsn = filepath.Join(dataDir, "drafts.db")
		}
		return NewSQLite(dsn, log)
	case BackendRedis:
		if dsn == "" {
			dsn = "redis://localhost:6379/0"
		}
		return NewRedis(ctx, dsn, log)
	case BackendS3:
		bucket, prefix, _ := strings.Cut(dsn, "/")
		return NewS3(ctx, bucket, prefix, log)
	}
	return nil, fmt.Errorf("unknown draft store %q (want one of %s)", kind, strings.Join(Backends(), ", "))
}
