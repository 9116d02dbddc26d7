// Package archive defines the on-disk naming scheme for downloaded
// takeout chunks and the resume scan over an output directory.
package archive

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// finalPattern matches finalized chunk filenames and captures the
// zero-padded index. Anything that does not match exactly (temp files,
// truncated names, stray downloads) is not a finalized chunk.
var finalPattern = regexp.MustCompile(`^takeout-\d{8}T\d{6}Z-(\d{3})\.zip$`)

// FinalName returns the canonical filename for a completed chunk:
// takeout-{YYYYMMDD}T{HHMMSS}Z-{index:03d}.zip
func FinalName(index int, at time.Time) string {
	return fmt.Sprintf("takeout-%sZ-%03d.zip", at.UTC().Format("20060102T150405"), index)
}

// TempName returns a per-attempt unique name for an in-progress write.
// The tmp_ prefix keeps it invisible to the resume scan; the uuid nonce
// guarantees two attempts for the same index never collide, even within
// the same second.
func TempName(index int, at time.Time) string {
	return fmt.Sprintf("tmp_%s_%03d_%s.zip", at.UTC().Format("20060102T150405"), index, uuid.NewString())
}

// ParseIndex extracts the embedded index from a finalized chunk
// filename. ok is false for any name that is not an exact match.
func ParseIndex(name string) (index int, ok bool) {
	m := finalPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	// The pattern guarantees three digits, so Sscanf cannot fail.
	fmt.Sscanf(m[1], "%d", &index)
	return index, true
}
