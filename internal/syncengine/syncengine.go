// Package syncengine implements SyncFile, the decision state machine and
// executor described in spec.md §4.4: given a source and a target handle,
// it inspects the pre-existing state of the target and an associated
// tmp-pool file, classifies the situation, and drives the minimum set of
// actions (hardlink, copy, metadata refresh) needed to make the target a
// correct copy of the source.
package syncengine

import (
	"context"
	"errors"
	"os"

	"github.com/ncsa/stripesync/internal/compare"
	"github.com/ncsa/stripesync/internal/fsitem"
	"github.com/ncsa/stripesync/internal/runcmd"
	"github.com/ncsa/stripesync/internal/synclog"
	"github.com/ncsa/stripesync/internal/syncopts"
	"github.com/ncsa/stripesync/internal/synerr"
)

// Layout is the subset of lfstool.Tool the engine needs: resolving a
// source's file-id and presetting a newly created destination's stripe
// layout.
type Layout interface {
	fsitem.LayoutResolver
	SetLayout(ctx context.Context, path string, count, size, offset int) error
}

// ActionTaken reports what the engine actually did, per spec.md §4.4.
type ActionTaken struct {
	DataCopy   bool
	MetaUpdate bool
}

// Engine is the SyncEngine of spec.md §4.4. Build with New.
type Engine struct {
	Layout  Layout
	Rsync   runcmd.Runner // the rsync-like attribute-preserving copy tool
	Block   runcmd.Runner // the block-oriented (dd-like) bulk copy tool
	MaxSize int64         // PYLUTRSYNCMAXSIZE: threshold above which Block is used
}

// New builds an Engine.
func New(layout Layout, rsync, block runcmd.Runner, maxSize int64) *Engine {
	return &Engine{Layout: layout, Rsync: rsync, Block: block, MaxSize: maxSize}
}

// handleState bundles a handle with the existence/compare results used
// while planning.
type handleState struct {
	h      *fsitem.Handle
	exists bool
	dataOK bool
	metaOK bool
}

func (e *Engine) withOpts(opts syncopts.Options) *boundEngine {
	return &boundEngine{Engine: e, opts: opts}
}

// boundEngine is an Engine plus the options for one in-flight SyncFile
// call; planning and comparison are methods on it so they don't need to
// thread opts through every call.
type boundEngine struct {
	*Engine
	opts syncopts.Options
}

// SyncFile is the SyncEngine's sole operation (spec.md §4.4): inspects
// the tmp and tgt handles, classifies the situation into one of nine
// cases, executes the minimal plan, and returns the tmp handle (even if
// not kept) and the actions actually taken.
func (e *Engine) SyncFile(ctx context.Context, src, tgt *fsitem.Handle, opts syncopts.Options) (*fsitem.Handle, ActionTaken, error) {
	if opts.TmpBase == "" {
		return nil, ActionTaken{}, &synerr.InputError{Reason: "tmpbase must be provided"}
	}
	srcExists, err := src.Exists()
	if err != nil {
		return nil, ActionTaken{}, err
	}
	if !srcExists {
		return nil, ActionTaken{}, &synerr.InputError{Reason: "source does not exist", Cause: os.ErrNotExist}
	}

	srcID, err := src.FileID(ctx)
	if err != nil {
		return nil, ActionTaken{}, &synerr.InputError{Reason: "could not resolve source file id", Cause: err}
	}
	tmpPath := deriveTmpPath(opts.TmpBase, srcID)
	tmp, err := fsitem.New(tmpPath, e.Layout)
	if err != nil {
		return nil, ActionTaken{}, err
	}

	b := e.withOpts(opts)
	p, err := b.plan(ctx, src, tmp, tgt)
	if err != nil {
		return tmp, ActionTaken{}, err
	}
	if err := b.execute(ctx, src, p); err != nil {
		return tmp, p.action, err
	}
	return tmp, p.action, nil
}

// compareState is like handleState but computed against the bound opts.
func (b *boundEngine) compareState(src, h *fsitem.Handle) (handleState, error) {
	exists, err := h.Exists()
	if err != nil {
		return handleState{}, err
	}
	st := handleState{h: h, exists: exists}
	if exists {
		dataOK, metaOK, err := compare.Equal(src, h, b.opts)
		if err != nil {
			return handleState{}, err
		}
		st.dataOK, st.metaOK = dataOK, metaOK
	}
	return st, nil
}

// plan is the internal Action plan of spec.md §3: six boolean decisions
// and up to three operand pairs.
type plan struct {
	tmp *fsitem.Handle // the tmp handle SyncFile derived; always set

	doMkTmpDir bool

	doSetLayout  bool
	setLayoutDst *fsitem.Handle

	doCopy  bool
	copySrc *fsitem.Handle
	copyDst *fsitem.Handle
	// fullDataCopy distinguishes an S0 from-scratch transfer, which may
	// use the block-copy tool above MaxSize, from a metadata-only
	// refresh (S1/S3/S5a), which must always go through the rsync-like
	// tool since runBlockCopy has no -t/-p/-o/-g analogue.
	fullDataCopy bool

	doHardlink bool
	linkSrc    *fsitem.Handle
	linkDst    *fsitem.Handle

	doChecksumVerify bool

	action ActionTaken
}

func (b *boundEngine) plan(ctx context.Context, src, tmp, tgt *fsitem.Handle) (*plan, error) {
	p := &plan{tmp: tmp}

	tmpSt, err := b.compareState(src, tmp)
	if err != nil {
		return nil, err
	}
	tgtSt, err := b.compareState(src, tgt)
	if err != nil {
		return nil, err
	}

	if tmpSt.exists && tgtSt.exists {
		sameInode, err := sameFile(ctx, tmp, tgt)
		if err != nil {
			return nil, err
		}
		if sameInode {
			// S5a / S5b
			if tmpSt.dataOK {
				if !tmpSt.metaOK {
					synclog.Debugf(tmp, "tmp and tgt are one inode, refreshing metadata")
					p.action.MetaUpdate = true
					p.doCopy = true
					p.copySrc, p.copyDst = src, tmp
				}
				return p, nil
			}
			synclog.Debugf(tmp, "tmp and tgt are one inode but data is stale, recreating")
			if err := unlinkIgnoreMissing(tmp.Path()); err != nil {
				return nil, err
			}
			tmp.Invalidate()
			if err := unlinkIgnoreMissing(tgt.Path()); err != nil {
				return nil, err
			}
			tgt.Invalidate()
			tmpSt = handleState{h: tmp}
			tgtSt = handleState{h: tgt}
		} else {
			// S6a / S6b / S6c
			switch {
			case tmpSt.dataOK:
				synclog.Debugf(tgt, "tmp data ok, removing stale tgt")
				if err := unlinkIgnoreMissing(tgt.Path()); err != nil {
					return nil, err
				}
				tgt.Invalidate()
				tgtSt = handleState{h: tgt}
			case tgtSt.dataOK:
				synclog.Debugf(tmp, "tgt data ok, removing stale tmp")
				if err := unlinkIgnoreMissing(tmp.Path()); err != nil {
					return nil, err
				}
				tmp.Invalidate()
				tmpSt = handleState{h: tmp}
			default:
				synclog.Debugf(tmp, "neither tmp nor tgt ok, removing both")
				if err := unlinkIgnoreMissing(tmp.Path()); err != nil {
					return nil, err
				}
				tmp.Invalidate()
				if err := unlinkIgnoreMissing(tgt.Path()); err != nil {
					return nil, err
				}
				tgt.Invalidate()
				tmpSt = handleState{h: tmp}
				tgtSt = handleState{h: tgt}
			}
		}
	}

	if tmpSt.exists != tgtSt.exists {
		if tmpSt.exists {
			// S1 / S2
			if tmpSt.dataOK {
				p.doHardlink = true
				p.linkSrc, p.linkDst = tmp, tgt
				if !tmpSt.metaOK {
					p.action.MetaUpdate = true
					p.doCopy = true
					p.copySrc, p.copyDst = src, tmp
				}
				return p, nil
			}
			synclog.Debugf(tmp, "tmp exists but data is stale, falling through to recreate")
			if err := unlinkIgnoreMissing(tmp.Path()); err != nil {
				return nil, err
			}
			tmp.Invalidate()
			tmpSt = handleState{h: tmp}
		} else {
			// S3 / S4
			if tgtSt.dataOK {
				if b.opts.KeepTmp {
					p.doMkTmpDir = true
					p.doHardlink = true
					p.linkSrc, p.linkDst = tgt, tmp
				}
				if !tgtSt.metaOK {
					p.action.MetaUpdate = true
					p.doCopy = true
					p.copySrc, p.copyDst = src, tgt
				}
				return p, nil
			}
			synclog.Debugf(tgt, "tgt exists but data is stale, falling through to recreate")
			if err := unlinkIgnoreMissing(tgt.Path()); err != nil {
				return nil, err
			}
			tgt.Invalidate()
			tgtSt = handleState{h: tgt}
		}
	}

	// S0: neither tmp nor tgt exist (or both were just removed above).
	p.action.DataCopy = true
	p.action.MetaUpdate = true

	if src.IsRegular() {
		p.doSetLayout = true
	}

	if b.opts.KeepTmp {
		p.doMkTmpDir = true
		p.setLayoutDst = tmp
		p.doCopy = true
		p.fullDataCopy = true
		p.copySrc, p.copyDst = src, tmp
		p.doHardlink = true
		p.linkSrc, p.linkDst = tmp, tgt
		p.doChecksumVerify = true
	} else {
		p.setLayoutDst = tgt
		p.doCopy = true
		p.fullDataCopy = true
		p.copySrc, p.copyDst = src, tgt
		p.doChecksumVerify = true
	}
	return p, nil
}

func sameFile(ctx context.Context, a, b *fsitem.Handle) (bool, error) {
	aID, err := a.FileID(ctx)
	if err != nil {
		return false, err
	}
	bID, err := b.FileID(ctx)
	if err != nil {
		return false, err
	}
	return aID == bID, nil
}

func unlinkIgnoreMissing(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &synerr.SyncError{Reason: "unable to remove " + path, Cause: err}
	}
	return nil
}
