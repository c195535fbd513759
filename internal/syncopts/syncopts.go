// Package syncopts defines the sync-options record that parameterizes one
// SyncFile or SyncDir call.
package syncopts

// Options are the boolean knobs and the required TmpBase that
// parameterize one syncfile call (spec.md §3, "SyncOptions").
type Options struct {
	// TmpBase is the absolute directory under which tmp-pool files are
	// created. Required for SyncFile.
	TmpBase string

	// KeepTmp preserves the tmp-pool hardlink after a successful sync.
	KeepTmp bool

	// SyncTimes, SyncPerms, SyncOwner and SyncGroup each enable
	// propagation and equality checking of the corresponding metadata
	// field.
	SyncTimes bool
	SyncPerms bool
	SyncOwner bool
	SyncGroup bool

	// PreChecksums forces an MD5 comparison before declaring a
	// candidate's data acceptable, even when size and mtime agree.
	PreChecksums bool

	// PostChecksums verifies source and target MD5 match after a data
	// copy.
	PostChecksums bool
}
