package main

import (
	"fmt"

	"github.com/moby/sys/mountinfo"
)

// guardNotMounted refuses to bring the engine up over a path that the
// host already reports as a mount point, the way a real mount(8) wrapper
// would check /proc/self/mountinfo before calling mount(2).
func guardNotMounted(path string) error {
	mounted, err := mountinfo.Mounted(path)
	if err != nil {
		return fmt.Errorf("checking mount state of %s: %w", path, err)
	}
	if mounted {
		return fmt.Errorf("%s is already a mount point", path)
	}
	return nil
}
