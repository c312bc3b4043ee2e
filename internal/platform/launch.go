package platform

import (
	"fmt"

	"github.com/skratchdot/open-golang/open"
)

// OpenFileManager opens the system file manager at path.
func OpenFileManager(path string) error {
	if err := open.Start(path); err != nil {
		return fmt.Errorf("failed to open file manager at %s: %w", path, err)
	}
	return nil
}
