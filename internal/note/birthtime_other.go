//go:build !darwin

package note

import (
	"io/fs"
	"time"
)

// Birth time is not portably available outside darwin; callers fall back
// to the modification time.
func birthtime(fs.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
