// Package synctest builds scratch source/tmp/target trees for tests,
// standing in for a real Lustre mount (spec.md's tests run against plain
// local directories; stripe operations are exercised through a fake
// lfstool.Tool, not a real one). Grounded on the original project's
// pstestdir.py fixture builder, reduced to the deterministic subset
// useful for table-driven Go tests.
package synctest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/ncsa/stripesync/internal/stripe"
)

// Tree is a source/tmp/target triple of scratch directories, one per test.
type Tree struct {
	Src string
	Tmp string
	Tgt string
}

// NewTree creates three empty scratch directories under t.TempDir().
func NewTree(t *testing.T) *Tree {
	t.Helper()
	base := t.TempDir()
	tr := &Tree{
		Src: filepath.Join(base, "src"),
		Tmp: filepath.Join(base, "tmp"),
		Tgt: filepath.Join(base, "tgt"),
	}
	for _, d := range []string{tr.Src, tr.Tmp, tr.Tgt} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("synctest: mkdir %s: %v", d, err)
		}
	}
	return tr
}

// WriteFile writes content to name under the source tree, creating parent
// directories as needed, and returns the absolute path.
func (tr *Tree) WriteFile(name string, content []byte) string {
	return writeUnder(tr.Src, name, content)
}

// WriteTargetFile writes content to name under the target tree.
func (tr *Tree) WriteTargetFile(name string, content []byte) string {
	return writeUnder(tr.Tgt, name, content)
}

// WriteTmpFile writes content to name under the tmp tree.
func (tr *Tree) WriteTmpFile(name string, content []byte) string {
	return writeUnder(tr.Tmp, name, content)
}

func writeUnder(root, name string, content []byte) string {
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		panic(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		panic(err)
	}
	return path
}

// Link hardlinks dst to src, both absolute paths.
func Link(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Link(src, dst)
}

// Touch sets mtime and atime on path to at, leaving content untouched.
func Touch(path string, at time.Time) error {
	return os.Chtimes(path, at, at)
}

// FakeLayout is a fsitem.LayoutResolver / syncengine.Layout stand-in for
// test trees that live on an ordinary filesystem rather than Lustre:
// PathToID reports dev:ino (good enough to detect hardlinks in a single
// test run) and layout operations are no-ops reporting the null layout.
type FakeLayout struct {
	// Layouts optionally scripts a non-null layout for specific paths,
	// keyed by the exact path passed to GetLayout.
	Layouts map[string]stripe.Layout

	// SetCalls records every SetLayout invocation for assertions.
	SetCalls []SetLayoutCall
}

// SetLayoutCall records one SetLayout invocation seen by FakeLayout.
type SetLayoutCall struct {
	Path               string
	Count, Size, Offset int
}

// NewFakeLayout returns an empty FakeLayout.
func NewFakeLayout() *FakeLayout {
	return &FakeLayout{Layouts: map[string]stripe.Layout{}}
}

// PathToID implements fsitem.LayoutResolver.
func (f *FakeLayout) PathToID(_ context.Context, path string) (string, error) {
	var st syscall.Stat_t
	if err := syscall.Lstat(path, &st); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", st.Dev, st.Ino), nil
}

// GetLayout implements fsitem.LayoutResolver.
func (f *FakeLayout) GetLayout(_ context.Context, path string, _ bool) (stripe.Layout, error) {
	if l, ok := f.Layouts[path]; ok {
		return l, nil
	}
	return stripe.Layout{}, nil
}

// SetLayout implements syncengine.Layout; it never errors and records the
// call for later assertions.
func (f *FakeLayout) SetLayout(_ context.Context, path string, count, size, offset int) error {
	f.SetCalls = append(f.SetCalls, SetLayoutCall{Path: path, Count: count, Size: size, Offset: offset})
	return nil
}
