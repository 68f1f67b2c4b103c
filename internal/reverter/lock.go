package reverter

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ksyq12/certnginx/internal/errors"
	"github.com/ksyq12/certnginx/internal/logger"
)

const lockFile = ".certnginx.lock"

// Lock is an exclusive advisory lock over a server root, held for the
// lifetime of a configuration session. Two concurrent sessions against
// the same root would corrupt each other's checkpoints.
type Lock struct {
	path string
}

// AcquireLock takes the session lock in serverRoot. It fails with a
// LOCK_HELD error when another process holds the lock.
func AcquireLock(serverRoot string) (*Lock, error) {
	path := filepath.Join(serverRoot, lockFile)

	fd, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			logger.Debug("lock file %s exists, holder pid: %s", path, lockHolder(path))
			return nil, errors.LockHeld(path)
		}
		return nil, fmt.Errorf("failed to create lock file %s: %w", path, err)
	}

	if _, err := fmt.Fprintf(fd, "%d\n", os.Getpid()); err != nil {
		fd.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write lock file %s: %w", path, err)
	}
	if err := fd.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close lock file %s: %w", path, err)
	}

	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() error {
	if l.path == "" {
		return nil
	}
	path := l.path
	l.path = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file %s: %w", path, err)
	}
	return nil
}

// lockHolder reads the pid recorded in an existing lock file, for
// diagnostics only.
func lockHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	pid := strings.TrimSpace(string(data))
	if _, err := strconv.Atoi(pid); err != nil {
		return "unknown"
	}
	return pid
}
