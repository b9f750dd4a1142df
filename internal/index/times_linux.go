//go:build linux

package index

import (
	"os"
	"syscall"
	"time"
)

// extraTimes reads access and status-change time from the raw stat data.
func extraTimes(info os.FileInfo) (accessed, created time.Time) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return time.Time{}, time.Time{}
	}
	accessed = time.Unix(int64(st.Atim.Sec), int64(st.Atim.Nsec))
	created = time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
	return accessed, created
}
