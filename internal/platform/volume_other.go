//go:build !linux

package platform

// isRAMBacked cannot be verified without statfs filesystem magic; report
// false so the operator always sees the persistent-storage warning on
// platforms where tmpfs detection is unavailable.
func isRAMBacked(path string) bool {
	return false
}
