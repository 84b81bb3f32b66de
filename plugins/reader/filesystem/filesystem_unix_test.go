//go:build !windows

package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipsNonRegularFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "g", "a.xht"), "x")
	if err := syscall.Mkfifo(filepath.Join(root, "g", "pipe.xht"), 0o644); err != nil {
		t.Skipf("mkfifo unsupported: %v", err)
	}
	src, err := New(nil, &pathExtractor{})
	require.NoError(t, err)
	gs, err := src.Groups(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xht"}, testNames(t, gs[0]))
}

func TestFollowsSymlinkToRegularFile(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "real.xht")
	writeFile(t, target, "x")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "g"), 0o755))
	require.NoError(t, os.Symlink(target, filepath.Join(root, "g", "link.xht")))

	src, err := New(nil, &pathExtractor{})
	require.NoError(t, err)
	gs, err := src.Groups(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"link.xht"}, testNames(t, gs[0]))
}
