package platform

import "golang.org/x/sys/unix"

// Filesystem magic numbers for non-persistent mounts.
const (
	tmpfsMagic = 0x01021994
	ramfsMagic = 0x858458f6
)

// isRAMBacked reports whether the path lives on a tmpfs or ramfs mount.
func isRAMBacked(path string) bool {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return false
	}
	return st.Type == tmpfsMagic || st.Type == ramfsMagic
}
