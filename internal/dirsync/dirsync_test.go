package dirsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncsa/stripesync/internal/runcmd"
	"github.com/ncsa/stripesync/internal/syncopts"
	"github.com/ncsa/stripesync/internal/synerr"
)

func TestSyncDirTargetIsParentOfTgtDir(t *testing.T) {
	fake := runcmd.NewFake()
	s := New(fake)

	err := s.SyncDir(context.Background(), "/src/dir", "/tgt/parent/dir", syncopts.Options{})
	require.NoError(t, err)

	require.Len(t, fake.Calls, 1)
	args := fake.Calls[0].Args
	require.GreaterOrEqual(t, len(args), 2)
	assert.Equal(t, "/src/dir", args[len(args)-2])
	assert.Equal(t, "/tgt/parent/", args[len(args)-1])
	assert.Contains(t, args, "-d")
	assert.Contains(t, args, "-X")
	assert.Contains(t, args, "-A")
	assert.Contains(t, args, "--super")
}

func TestSyncDirOptionalFlags(t *testing.T) {
	fake := runcmd.NewFake()
	s := New(fake)

	err := s.SyncDir(context.Background(), "/src/dir", "/tgt/parent/dir", syncopts.Options{
		SyncTimes: true, SyncPerms: true, SyncOwner: true, SyncGroup: true,
	})
	require.NoError(t, err)

	args := fake.Calls[0].Args
	assert.Contains(t, args, "-t")
	assert.Contains(t, args, "-p")
	assert.Contains(t, args, "-o")
	assert.Contains(t, args, "-g")
}

func TestSyncDirToolErrorIsCopyError(t *testing.T) {
	fake := runcmd.NewFake()
	fake.Default = runcmd.FakeResponse{Err: assert.AnError}
	s := New(fake)

	err := s.SyncDir(context.Background(), "/src/dir", "/tgt/parent/dir", syncopts.Options{})
	require.Error(t, err)
	var copyErr *synerr.CopyError
	assert.ErrorAs(t, err, &copyErr)
}

func TestSyncDirStderrIsFatal(t *testing.T) {
	fake := runcmd.NewFake()
	fake.Default = runcmd.FakeResponse{Stderr: "rsync: some warning\n"}
	s := New(fake)

	err := s.SyncDir(context.Background(), "/src/dir", "/tgt/parent/dir", syncopts.Options{})
	require.Error(t, err)
}
