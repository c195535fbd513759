// Package dirsync implements SyncDir, the non-recursive directory
// attribute sync of spec.md §4.5: it makes tgt_dir exist with src_dir's
// inode-level attributes, without descending into either directory's
// contents.
package dirsync

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ncsa/stripesync/internal/runcmd"
	"github.com/ncsa/stripesync/internal/synclog"
	"github.com/ncsa/stripesync/internal/synerr"
	"github.com/ncsa/stripesync/internal/syncopts"
)

// Syncer runs SyncDir using an injected copy-tool runner, the same
// runcmd.Runner used by syncengine for file copies.
type Syncer struct {
	Rsync runcmd.Runner
}

// New builds a Syncer.
func New(rsync runcmd.Runner) *Syncer {
	return &Syncer{Rsync: rsync}
}

// SyncDir makes tgtDir exist with srcDir's directory-level attributes
// (spec.md §4.5). It never recurses into either directory's contents and
// never presets a stripe layout.
func (s *Syncer) SyncDir(ctx context.Context, srcDir, tgtDir string, opts syncopts.Options) error {
	parent := filepath.Dir(tgtDir)
	dst := parent + string(filepath.Separator)

	args := []string{"-d", "-X", "-A", "--super"}
	if opts.SyncTimes {
		args = append(args, "-t")
	}
	if opts.SyncPerms {
		args = append(args, "-p")
	}
	if opts.SyncOwner {
		args = append(args, "-o")
	}
	if opts.SyncGroup {
		args = append(args, "-g")
	}
	args = append(args, srcDir, dst)

	synclog.Debugf(nil, "syncdir %s -> %s", srcDir, dst)
	_, stderr, err := s.Rsync.Run(ctx, nil, args...)
	if err != nil {
		return &synerr.CopyError{Reason: "syncdir of " + srcDir + " -> " + dst, Cause: err}
	}
	if lines := strings.TrimRight(stderr, "\n"); lines != "" {
		return &synerr.CopyError{Reason: "errors during syncdir of " + srcDir + " -> " + dst + ": " + stderr}
	}
	return nil
}
