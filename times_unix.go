// SPDX-License-Identifier: MPL-2.0

//go:build unix

package unpack

import (
	"time"

	"golang.org/x/sys/unix"
)

// canMaintainSymlinkTimestamps reports whether timestamps can be changed
// on symlinks for the current platform. Go's cross-platform Chtimes
// follows symlinks, so a platform-dependent call is needed for the link
// itself.
const canMaintainSymlinkTimestamps = true

// lchtimes modifies the access and modification timestamps of a symlink
// without following it.
func lchtimes(path string, atime, mtime time.Time) error {
	return unix.Lutimes(path, []unix.Timeval{
		unix.NsecToTimeval(atime.UnixNano()),
		unix.NsecToTimeval(mtime.UnixNano()),
	})
}
