package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// acquireLock creates the build lock holding this process's pid. A lock left
// by a process that no longer exists is removed and taken over once.
func acquireLock(dir string, log *zap.Logger) (*os.File, error) {
	path := filepath.Join(dir, LockFile)
	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid()) //nolint:errcheck
			return f, nil
		}
		if !os.IsExist(err) {
			return nil, eris.Wrap(err, "index: acquire lock")
		}

		pid, ok := lockOwner(path)
		if !ok {
			return nil, eris.Wrapf(ErrLocked, "index: %s is locked", dir)
		}
		if attempt > 0 || processAlive(pid) {
			return nil, eris.Wrapf(ErrLocked, "index: %s is locked by pid %d", dir, pid)
		}
		log.Warn("removing stale build lock", zap.Int("pid", pid))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, eris.Wrap(err, "index: remove stale lock")
		}
	}
}

// lockOwner reads the pid recorded in a lock file.
func lockOwner(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
