// Package compare implements FileComparator: given a source and a
// candidate file, decide whether the candidate's data and metadata are
// acceptable, as two independent booleans.
package compare

import (
	"github.com/ncsa/stripesync/internal/fsitem"
	"github.com/ncsa/stripesync/internal/syncopts"
)

// Handle is the subset of *fsitem.Handle the comparator needs. It is an
// interface so tests can substitute lightweight fakes.
type Handle interface {
	Size() int64
	Mtime() int64
	Atime() int64
	Ctime() int64
	UID() uint32
	GID() uint32
	Mode() uint32
	MD5() (string, error)
}

var _ Handle = (*fsitem.Handle)(nil)

// Equal compares cand against src under opts, returning (dataOK, metaOK).
// Both booleans are always defined, even when dataOK is false; callers
// may short-circuit.
//
// A fast-path policy short-circuit applies first: if cand's ctime is
// strictly newer than src's ctime, both booleans are reported true
// without further inspection — a candidate whose metadata changed after
// the source's own last metadata change is, by policy, considered
// current. This mirrors the original _compare_files' "fast check."
func Equal(src, cand Handle, opts syncopts.Options) (dataOK, metaOK bool, err error) {
	if cand.Ctime() > src.Ctime() {
		return true, true, nil
	}

	dataOK, err = dataEqual(src, cand, opts)
	if err != nil {
		return false, false, err
	}
	if !dataOK {
		// A full re-sync will also refresh metadata, so meta is
		// reported not-ok whenever data is not-ok.
		return false, false, nil
	}

	metaOK = metaEqual(src, cand, opts)
	return dataOK, metaOK, nil
}

// dataEqual does not compare stripe layouts: a file's stripe count and
// size are fixed when it is created, so they are not checked here.
func dataEqual(src, cand Handle, opts syncopts.Options) (bool, error) {
	if src.Size() != cand.Size() {
		return false, nil
	}
	if opts.SyncTimes {
		if src.Mtime() != cand.Mtime() {
			return false, nil
		}
	} else if src.Mtime() > cand.Mtime() {
		return false, nil
	}
	if opts.PreChecksums {
		srcSum, err := src.MD5()
		if err != nil {
			return false, err
		}
		candSum, err := cand.MD5()
		if err != nil {
			return false, err
		}
		if srcSum != candSum {
			return false, nil
		}
	}
	return true, nil
}

func metaEqual(src, cand Handle, opts syncopts.Options) bool {
	if opts.SyncOwner && src.UID() != cand.UID() {
		return false
	}
	if opts.SyncGroup && src.GID() != cand.GID() {
		return false
	}
	if opts.SyncPerms && src.Mode() != cand.Mode() {
		return false
	}
	if opts.SyncTimes && src.Atime() != cand.Atime() {
		return false
	}
	return true
}
