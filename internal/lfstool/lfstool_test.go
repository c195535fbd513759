package lfstool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncsa/stripesync/internal/runcmd"
)

func TestPathToID(t *testing.T) {
	fake := runcmd.NewFake()
	fake.Responses["path2fid /mnt/a"] = runcmd.FakeResponse{Stdout: "[0x200000400:0x1:0x0]\n"}
	tool := NewWithRunner(fake)

	id, err := tool.PathToID(context.Background(), "/mnt/a")
	require.NoError(t, err)
	assert.Equal(t, "[0x200000400:0x1:0x0]", id)
}

func TestGetLayoutDirForm(t *testing.T) {
	fake := runcmd.NewFake()
	fake.Responses["getstripe -d /mnt/dir"] = runcmd.FakeResponse{
		Stdout: "/mnt/dir\nstripe_count: 2 stripe_size: 1048576 stripe_offset: -1\n",
	}
	tool := NewWithRunner(fake)

	l, err := tool.GetLayout(context.Background(), "/mnt/dir", true)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Count)
	assert.Equal(t, 1048576, l.Size)
}

func TestGetLayoutNoStripeInfo(t *testing.T) {
	fake := runcmd.NewFake()
	fake.Responses["getstripe /mnt/file"] = runcmd.FakeResponse{
		Stdout: "/mnt/file has no stripe info\n",
	}
	tool := NewWithRunner(fake)

	l, err := tool.GetLayout(context.Background(), "/mnt/file", false)
	require.NoError(t, err)
	assert.True(t, l.IsNull())
}

func TestSetLayoutAlreadyExists(t *testing.T) {
	fake := runcmd.NewFake()
	fake.Responses["setstripe -c 2 -S 1048576 /mnt/file"] = runcmd.FakeResponse{
		Err: &runcmd.Error{Code: 17, Sentinel: runcmd.ErrAlreadyExists},
	}
	tool := NewWithRunner(fake)

	err := tool.SetLayout(context.Background(), "/mnt/file", 2, 1048576, -1)
	require.Error(t, err)
}
