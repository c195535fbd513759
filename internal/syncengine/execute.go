package syncengine

import (
	"context"
	"os"
	"strings"

	"github.com/ncsa/stripesync/internal/fsitem"
	"github.com/ncsa/stripesync/internal/synclog"
	"github.com/ncsa/stripesync/internal/synerr"
)

// blockCopyStderrBudget is the number of stderr lines tolerated from the
// block-copy tool before treating its output as a real error rather than
// progress noise (spec.md §4.4 / §9: "a pragmatic heuristic, not a
// contract").
const blockCopyStderrBudget = 2

// execute carries out a plan in the order fixed by spec.md §4.4:
// mkdir, setlayout, copy, hardlink, tmp cleanup, checksum verify.
func (b *boundEngine) execute(ctx context.Context, src *fsitem.Handle, p *plan) error {
	if p.doMkTmpDir {
		dir := p.tmp.Parent()
		if err := mkdirAllIgnoreExists(dir); err != nil {
			return &synerr.SyncError{Reason: "unable to create tmpdir " + dir, Cause: err}
		}
	}

	if p.doSetLayout && p.setLayoutDst != nil {
		layout, err := src.StripeLayout(ctx)
		if err != nil {
			return &synerr.LayoutError{Reason: "could not read source stripe layout", Cause: err}
		}
		if !layout.IsNull() {
			if err := b.Layout.SetLayout(ctx, p.setLayoutDst.Path(), layout.Count, layout.Size, -1); err != nil {
				return err
			}
		}
	}

	if p.doCopy {
		if err := b.runCopy(ctx, src, p.copySrc, p.copyDst, p.fullDataCopy); err != nil {
			return err
		}
	}

	if p.doHardlink {
		if err := os.Link(p.linkSrc.Path(), p.linkDst.Path()); err != nil {
			return &synerr.LinkError{Reason: "link " + p.linkSrc.Path() + " -> " + p.linkDst.Path(), Cause: err}
		}
		p.linkDst.Invalidate()
	}

	if !b.opts.KeepTmp {
		// tmp is always the handle SyncFile derived, not necessarily
		// p.copyDst/p.linkSrc; the caller passes it in via plan.tmp.
		if err := unlinkIgnoreMissing(p.tmp.Path()); err != nil {
			return err
		}
	}

	if p.doChecksumVerify && b.opts.PostChecksums && p.copyDst != nil {
		srcSum, err := src.MD5()
		if err != nil {
			return err
		}
		dstSum, err := p.copyDst.MD5()
		if err != nil {
			return err
		}
		if srcSum != dstSum {
			return &synerr.ChecksumMismatch{
				Src: src.Path(), Tgt: p.copyDst.Path(),
				SrcSum: srcSum, TgtSum: dstSum,
			}
		}
	}

	return nil
}

// runCopy dispatches a copy to the block-copy tool only for a genuine
// full-data transfer (S0) above MaxSize; a metadata-only refresh
// (fullDataCopy false) always goes through the rsync-like tool, since
// runBlockCopy has no equivalent of -t/-p/-o/-g and would silently drop
// the metadata update while re-transferring data that is already known
// to be correct (data_ok is true whenever a metadata-only refresh is
// planned).
func (b *boundEngine) runCopy(ctx context.Context, src *fsitem.Handle, from, to *fsitem.Handle, fullDataCopy bool) error {
	if fullDataCopy && src.IsRegular() && b.MaxSize > 0 && src.Size() > b.MaxSize {
		return b.runBlockCopy(ctx, from, to)
	}
	return b.runRsync(ctx, from, to)
}

func (b *boundEngine) runRsync(ctx context.Context, from, to *fsitem.Handle) error {
	args := []string{"-l", "-A", "-X", "--super", "--inplace", "--specials"}
	if b.opts.SyncTimes {
		args = append(args, "-t")
	}
	if b.opts.SyncPerms {
		args = append(args, "-p")
	}
	if b.opts.SyncOwner {
		args = append(args, "-o")
	}
	if b.opts.SyncGroup {
		args = append(args, "-g")
	}
	args = append(args, from.Path(), to.Path())

	synclog.Debugf(from, "rsync -> %s", to.Path())
	_, stderr, err := b.Rsync.Run(ctx, map[string]string{"--compress-level": "0"}, args...)
	if err != nil {
		return &synerr.CopyError{Reason: "rsync of " + from.Path() + " -> " + to.Path(), Cause: err}
	}
	if len(stderr) > 0 {
		return &synerr.CopyError{Reason: "errors during sync of " + from.Path() + " -> " + to.Path() + ": " + stderr}
	}
	to.Invalidate()
	return nil
}

func (b *boundEngine) runBlockCopy(ctx context.Context, from, to *fsitem.Handle) error {
	opts := map[string]string{
		"bs":     "4194304",
		"if":     from.Path(),
		"of":     to.Path(),
		"status": "noxfer",
	}
	synclog.Debugf(from, "block copy -> %s", to.Path())
	_, stderr, err := b.Block.Run(ctx, opts)
	if err != nil {
		return &synerr.CopyError{Reason: "block copy of " + from.Path() + " -> " + to.Path(), Cause: err}
	}
	if lines := strings.Split(strings.TrimRight(stderr, "\n"), "\n"); stderr != "" && len(lines) > blockCopyStderrBudget {
		return &synerr.CopyError{Reason: "errors during block copy of " + from.Path() + " -> " + to.Path() + ": " + stderr}
	}
	to.Invalidate()
	return nil
}

func mkdirAllIgnoreExists(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
