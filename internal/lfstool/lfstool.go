// Package lfstool wraps the external layout utility (PYLUTLFSPATH),
// exposing path2fid, fid2path, getstripe and setstripe as Go methods.
package lfstool

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/ncsa/stripesync/internal/runcmd"
	"github.com/ncsa/stripesync/internal/stripe"
	"github.com/ncsa/stripesync/internal/synerr"
)

// Tool is the layout-utility client. The zero value is not usable; build
// one with New.
type Tool struct {
	runner runcmd.Runner
}

// New builds a Tool that shells out to the layout utility at path via a
// runcmd.Exec runner.
func New(path string) *Tool {
	return &Tool{runner: runcmd.New(path)}
}

// NewWithRunner builds a Tool around an arbitrary Runner, for tests.
func NewWithRunner(r runcmd.Runner) *Tool {
	return &Tool{runner: r}
}

// PathToID resolves path to its filesystem-unique identifier (a FID on
// Lustre). Fails with an error wrapping runcmd.ErrNotFound if path does
// not exist.
func (t *Tool) PathToID(ctx context.Context, path string) (string, error) {
	out, _, err := t.runner.Run(ctx, nil, "path2fid", path)
	if err != nil {
		return "", &synerr.LayoutError{Reason: "path2fid failed for " + path, Cause: err}
	}
	return strings.TrimSpace(out), nil
}

// IDToPaths returns every hardlink path for id on the filesystem mounted
// at mount.
func (t *Tool) IDToPaths(ctx context.Context, mount, id string) ([]string, error) {
	out, _, err := t.runner.Run(ctx, nil, "fid2path", mount, id)
	if err != nil {
		return nil, &synerr.LayoutError{Reason: "fid2path failed for " + id, Cause: err}
	}
	return strings.Fields(out), nil
}

// GetLayout fetches the stripe layout for path, which may be a regular
// file or a directory. If the tool reports "has no stripe info", the null
// layout is returned without error.
func (t *Tool) GetLayout(ctx context.Context, path string, isDir bool) (stripe.Layout, error) {
	args := []string{"getstripe"}
	if isDir {
		args = append(args, "-d")
	}
	args = append(args, path)
	out, errput, err := t.runner.Run(ctx, nil, args...)
	if err != nil {
		return stripe.Layout{}, &synerr.LayoutError{Reason: "getstripe failed for " + path, Cause: err}
	}
	if strings.Contains(out, "has no stripe info") || strings.Contains(errput, "has no stripe info") {
		return stripe.Layout{}, nil
	}
	lines := strings.Split(out, "\n")
	if len(lines) > 0 {
		lines = lines[1:] // first line repeats the filename
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "stripe_count:") {
		l, perr := stripe.ParseDirLayout(lines[0])
		if perr != nil {
			return stripe.Layout{}, &synerr.LayoutError{Reason: "malformed getstripe output for " + path, Cause: perr}
		}
		return l, nil
	}
	l, perr := stripe.ParseFileLayout(lines)
	if perr != nil {
		return stripe.Layout{}, &synerr.LayoutError{Reason: "malformed getstripe output for " + path, Cause: perr}
	}
	return l, nil
}

// SetLayout sets the stripe layout for path. path must not yet exist
// (or must be a directory); calling it on an existing regular file fails
// with an error wrapping runcmd.ErrAlreadyExists ("stripe already set").
// A zero count or size, or a negative offset, is omitted from the
// command line (not requested); an offset of 0 is passed as "-i 0".
func (t *Tool) SetLayout(ctx context.Context, path string, count, size, offset int) error {
	args := []string{"setstripe"}
	if count > 0 {
		args = append(args, "-c", strconv.Itoa(count))
	}
	if size > 0 {
		args = append(args, "-S", strconv.Itoa(size))
	}
	if offset >= 0 {
		args = append(args, "-i", strconv.Itoa(offset))
	}
	args = append(args, path)
	_, _, err := t.runner.Run(ctx, nil, args...)
	if err != nil {
		if errors.Is(err, runcmd.ErrAlreadyExists) {
			return &synerr.LayoutError{Reason: "stripe already set on " + path, Cause: err}
		}
		return &synerr.LayoutError{Reason: "setstripe failed for " + path, Cause: err}
	}
	return nil
}
