package build

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockName = ".suitetoc.lock"

// ErrBusy: 输出目录正被另一构建进程占用。
var ErrBusy = errors.New("dist directory is locked by another build")

// distLock 独占输出目录；同一目录同一时刻只允许一个构建写入。
type distLock struct {
	f *flock.Flock
}

func lockDist(dir string) (*distLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	locker := flock.New(filepath.Join(dir, lockName))
	ok, err := locker.TryLock()
	if err != nil {
		_ = locker.Close()
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	if !ok {
		_ = locker.Close()
		return nil, fmt.Errorf("%w: %s", ErrBusy, dir)
	}
	return &distLock{f: locker}, nil
}

func (l *distLock) Unlock() {
	if l == nil || l.f == nil {
		return
	}
	_ = l.f.Close()
}
