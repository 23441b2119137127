package linker

import "time"

// Options controls a Session.
type Options struct {
	// Strict aborts the run on the first consistency failure instead of
	// skipping the affected group.
	Strict bool
	// DebugMapsDir, when set, receives the resolver map dumps after pass 1.
	DebugMapsDir string
	// InputSize is the corpus size in bytes, used for progress logging.
	// Zero disables percentages.
	InputSize int64
}

// Stats summarizes one run.
type Stats struct {
	Records              int
	Malformed            int
	StandardNumbers      int
	DuplicateIDs         int
	Groups               int
	Merged               int
	MissingPartnerGroups int
	SkippedGroups        int
	PatchedUplinks       int
	CrossLinksRemoved    int
	Warnings             int
	Written              int
	// Unwritable counts records the sink rejected for exceeding the
	// MARC-21 size limits.
	Unwritable int
	Duration             time.Duration
}
