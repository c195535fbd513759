package syncengine

import (
	"hash/fnv"
	"path/filepath"
	"strconv"
)

// deriveTmpPath builds the tmp-pool path for a source file-id: tmpbase /
// hex(hash(fileID))[-5:] / fileID (spec.md §3, "Tmp-pool path
// derivation"). The 5-hex-character subdirectory spreads entries to limit
// per-directory population; the source id appears verbatim as the leaf
// name so every hardlink sharing fileID maps to the same tmp path.
func deriveTmpPath(tmpBase, fileID string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fileID))
	hexHash := strconv.FormatUint(h.Sum64(), 16)
	bucket := last5(hexHash)
	return filepath.Join(tmpBase, bucket, fileID)
}

func last5(s string) string {
	if len(s) <= 5 {
		return s
	}
	return s[len(s)-5:]
}
