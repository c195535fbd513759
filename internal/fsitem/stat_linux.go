//go:build linux

package fsitem

import (
	"time"

	"golang.org/x/sys/unix"
)

// rawStat holds the stat_unix.go realization of the stat fields named in
// spec.md §3: mode, inode-number, device, nlink, uid, gid, size, atime,
// mtime, ctime.
type rawStat struct {
	Mode  uint32
	Ino   uint64
	Dev   uint64
	Nlink uint64
	UID   uint32
	GID   uint32
	Size  int64
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

func lstat(path string) (rawStat, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return rawStat{}, err
	}
	return rawStat{
		Mode:  st.Mode,
		Ino:   st.Ino,
		Dev:   uint64(st.Dev),
		Nlink: uint64(st.Nlink),
		UID:   st.Uid,
		GID:   st.Gid,
		Size:  st.Size,
		Atime: time.Unix(st.Atim.Unix()),
		Mtime: time.Unix(st.Mtim.Unix()),
		Ctime: time.Unix(st.Ctim.Unix()),
	}, nil
}
