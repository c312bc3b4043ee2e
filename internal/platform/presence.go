package platform

import (
	"errors"
	"io"
	"os"
)

// DevicePresent reports whether the durable medium at path is still
// reachable. Stat alone can succeed against a dead mount's cached dentry,
// so a directory read is forced to make the kernel touch the device.
func DevicePresent(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}

	dir, err := os.Open(path)
	if err != nil {
		return false
	}
	defer dir.Close()

	_, err = dir.Readdirnames(1)
	return err == nil || errors.Is(err, io.EOF)
}
