package runcmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptFlag(t *testing.T) {
	assert.Equal(t, "-c 2", optFlag("c", "2"))
	assert.Equal(t, "bs=4194304", optFlag("bs", "4194304"))
}

func TestSentinelFor(t *testing.T) {
	assert.ErrorIs(t, sentinelFor(2), ErrNotFound)
	assert.ErrorIs(t, sentinelFor(17), ErrAlreadyExists)
	assert.NoError(t, sentinelFor(1))
}

func TestFakeRecordsCallsAndDefaultResponse(t *testing.T) {
	f := NewFake()
	stdout, stderr, err := f.Run(context.Background(), map[string]string{"a": "b"}, "foo", "bar")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
	require.Len(t, f.Calls, 1)
	assert.Equal(t, []string{"foo", "bar"}, f.Calls[0].Args)
}

func TestFakeScriptedResponse(t *testing.T) {
	f := NewFake()
	wantErr := errors.New("boom")
	f.Responses["foo bar"] = FakeResponse{Stdout: "out", Stderr: "err", Err: wantErr}

	stdout, stderr, err := f.Run(context.Background(), nil, "foo", "bar")
	assert.Equal(t, "out", stdout)
	assert.Equal(t, "err", stderr)
	assert.Equal(t, wantErr, err)
}

func TestErrorUnwrap(t *testing.T) {
	e := &Error{Cmd: []string{"x"}, Code: 2, Sentinel: ErrNotFound}
	assert.ErrorIs(t, e, ErrNotFound)
}
