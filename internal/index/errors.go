package index

import "github.com/rotisserie/eris"

var (
	// ErrNotFound is returned when a directory holds no committed index.
	ErrNotFound = eris.New("index: not found")
	// ErrCorrupt is returned when committed files are missing or unreadable.
	ErrCorrupt = eris.New("index: corrupt")
	// ErrLocked is returned when another build holds the directory lock.
	ErrLocked = eris.New("index: build already in progress")
)
