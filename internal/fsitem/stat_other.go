//go:build !linux

package fsitem

import (
	"fmt"
	"runtime"
	"time"
)

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
	return rawStat{}, fmt.Errorf("fsitem: stat not implemented on %s", runtime.GOOS)
}
