//go:build !windows

package walker

import (
	"fmt"
	"os"
	"syscall"
)

// fillPlatformIdentity populates Inode/Device/InodeKey from the platform
// stat_t, giving the Scanner an inodeKey of "{dev}:{ino}" to dedupe on.
func fillPlatformIdentity(c *Candidate, info os.FileInfo) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	c.Inode = stat.Ino
	c.Device = uint64(stat.Dev)
	c.InodeKey = fmt.Sprintf("%d:%d", c.Device, c.Inode)
}
