//go:build !windows

package filesystem

import "os"

// replaceFile 在 POSIX 上以 rename 原子替换目标页面。
func replaceFile(tmpPath, dest string) error {
	return os.Rename(tmpPath, dest)
}

// syncDir 对目录 fsync，使新页面的目录项落盘。
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
