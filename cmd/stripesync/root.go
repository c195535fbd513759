// Package main implements the stripesync CLI: a thin cobra front end over
// the syncengine/dirsync core, following the teacher's cmd/ + cobra
// convention (command tree, PersistentFlags bound once at init, env-var
// overrides for external tool paths).
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ncsa/stripesync/internal/dirsync"
	"github.com/ncsa/stripesync/internal/fsitem"
	"github.com/ncsa/stripesync/internal/lfstool"
	"github.com/ncsa/stripesync/internal/runcmd"
	"github.com/ncsa/stripesync/internal/syncengine"
	"github.com/ncsa/stripesync/internal/synclog"
	"github.com/ncsa/stripesync/internal/syncopts"
)

const (
	envRsyncPath   = "PYLUTRSYNCPATH"
	envLfsPath     = "PYLUTLFSPATH"
	envRsyncMaxSz  = "PYLUTRSYNCMAXSIZE"
	defaultRsync   = "rsync"
	defaultLfs     = "lfs"
	defaultMaxSize = int64(1 << 30) // 1 GiB
)

var opts syncopts.Options

var rootCmd = &cobra.Command{
	Use:   "stripesync",
	Short: "Stripe-aware single-file and directory sync for Lustre filesystems",
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.TmpBase, "tmpbase", "", "tmp-pool base directory (required)")
	flags.BoolVar(&opts.KeepTmp, "keeptmp", false, "keep the tmp-pool hardlink after a successful sync")
	flags.BoolVar(&opts.SyncTimes, "sync-times", false, "propagate and compare mtime/atime")
	flags.BoolVar(&opts.SyncPerms, "sync-perms", false, "propagate and compare permission bits")
	flags.BoolVar(&opts.SyncOwner, "sync-owner", false, "propagate and compare owning uid")
	flags.BoolVar(&opts.SyncGroup, "sync-group", false, "propagate and compare owning gid")
	flags.BoolVar(&opts.PreChecksums, "pre-checksums", false, "verify candidate data by MD5, not just size/mtime")
	flags.BoolVar(&opts.PostChecksums, "post-checksums", false, "verify a copy's MD5 against the source afterward")

	rootCmd.AddCommand(syncCmd, syncDirCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func maxSizeFromEnv() int64 {
	v := os.Getenv(envRsyncMaxSz)
	if v == "" {
		return defaultMaxSize
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		synclog.Errorf(nil, "invalid %s=%q, using default: %v", envRsyncMaxSz, v, err)
		return defaultMaxSize
	}
	return n
}

// buildEngine wires an Engine from the current flags and environment,
// following the teacher's pattern of deferring client construction until
// a command actually runs.
func buildEngine() *syncengine.Engine {
	lfs := lfstool.New(envOr(envLfsPath, defaultLfs))
	rsync := runcmd.New(envOr(envRsyncPath, defaultRsync))
	block := runcmd.New("dd")
	return syncengine.New(lfs, rsync, block, maxSizeFromEnv())
}

func buildDirSyncer() *dirsync.Syncer {
	rsync := runcmd.New(envOr(envRsyncPath, defaultRsync))
	return dirsync.New(rsync)
}

var syncCmd = &cobra.Command{
	Use:   "sync <src> <tgt>",
	Short: "Sync a single file from src to tgt via the tmp-pool hardlink mechanism",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lfs := lfstool.New(envOr(envLfsPath, defaultLfs))
		src, err := fsitem.New(args[0], lfs)
		if err != nil {
			return err
		}
		tgt, err := fsitem.New(args[1], lfs)
		if err != nil {
			return err
		}
		engine := buildEngine()
		tmp, action, err := engine.SyncFile(cmd.Context(), src, tgt, opts)
		if err != nil {
			return err
		}
		synclog.Infof(tgt, "sync complete (data_copy=%v meta_update=%v tmp=%s)",
			action.DataCopy, action.MetaUpdate, tmp.Path())
		return nil
	},
}

var syncDirCmd = &cobra.Command{
	Use:   "syncdir <src_dir> <tgt_dir>",
	Short: "Sync one directory's inode-level attributes, non-recursively",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		syncer := buildDirSyncer()
		if err := syncer.SyncDir(cmd.Context(), args[0], args[1], opts); err != nil {
			return err
		}
		synclog.Infof(nil, "syncdir complete: %s -> %s", args[0], args[1])
		return nil
	},
}
