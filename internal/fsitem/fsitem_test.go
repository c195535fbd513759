package fsitem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncsa/stripesync/internal/synctest"
)

func TestHandleBasicStat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	h, err := New(path, synctest.NewFakeLayout())
	require.NoError(t, err)

	exists, err := h.Exists()
	require.NoError(t, err)
	assert.True(t, exists)
	assert.EqualValues(t, 5, h.Size())
	assert.True(t, h.IsRegular())
	assert.False(t, h.IsDir())
}

func TestHandleNotExist(t *testing.T) {
	h, err := New(filepath.Join(t.TempDir(), "missing"), synctest.NewFakeLayout())
	require.NoError(t, err)

	exists, err := h.Exists()
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHandleMD5NonRegularIsZero(t *testing.T) {
	dir := t.TempDir()
	h, err := New(dir, synctest.NewFakeLayout())
	require.NoError(t, err)
	sum, err := h.MD5()
	require.NoError(t, err)
	assert.Equal(t, zeroMD5, sum)
}

func TestHandleMD5Content(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	h, err := New(path, synctest.NewFakeLayout())
	require.NoError(t, err)

	sum, err := h.MD5()
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", sum)
}

func TestHandleInvalidateRecomputes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	h, err := New(path, synctest.NewFakeLayout())
	require.NoError(t, err)
	assert.EqualValues(t, 5, h.Size())

	require.NoError(t, os.WriteFile(path, []byte("hello world!"), 0o644))
	h.Invalidate()
	assert.EqualValues(t, 12, h.Size())
}

func TestStripeLayoutNullForNonRegularNonDir(t *testing.T) {
	dir := t.TempDir()
	fifoPath := filepath.Join(dir, "fifo")
	// No fifo is created: the null-layout guard for non-regular/non-dir
	// is exercised via a symlink at this path instead, which is portable.
	target := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	require.NoError(t, os.Symlink(target, fifoPath))

	h, err := New(fifoPath, synctest.NewFakeLayout())
	require.NoError(t, err)
	layout, err := h.StripeLayout(context.Background())
	require.NoError(t, err)
	assert.True(t, layout.IsNull())
}

func TestFileIDSharedAcrossHardlinks(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))
	require.NoError(t, os.Link(a, b))

	resolver := synctest.NewFakeLayout()
	ha, err := New(a, resolver)
	require.NoError(t, err)
	hb, err := New(b, resolver)
	require.NoError(t, err)

	idA, err := ha.FileID(context.Background())
	require.NoError(t, err)
	idB, err := hb.FileID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, idA, idB)
}
