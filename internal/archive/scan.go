package archive

import (
	"os"
)

// NextIndex scans dir for finalized chunk files and returns the next
// index to download: one past the highest embedded index, or 1 when no
// finalized chunk exists. A missing or unreadable directory means no
// progress yet, never an error — the engine creates it on first write.
func NextIndex(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 1
	}

	maxSeen := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if idx, ok := ParseIndex(e.Name()); ok && idx > maxSeen {
			maxSeen = idx
		}
	}
	return maxSeen + 1
}
