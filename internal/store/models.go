package store

import "time"

// State is the persisted retrieval progress for one export job. The
// engine rewrites it after every successfully completed index, so a
// crash loses at most the in-flight chunk.
type State struct {
	JobID              string
	LastCompletedIndex int
	MaxIndex           int
	OutputDir          string
	DelaySeconds       int
	UpdatedAt          time.Time
}
