//go:build !linux

package index

import (
	"os"
	"time"
)

// extraTimes is not implemented on this platform; both values stay unavailable.
func extraTimes(os.FileInfo) (accessed, created time.Time) {
	return time.Time{}, time.Time{}
}
