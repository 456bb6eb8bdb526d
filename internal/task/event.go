package task

import "github.com/Grunthos/TaskQueue/internal/store"

// Event pairs a persisted event row with its decoded, embedder-defined
// data. Data is a *LegacyEvent if the stored blob could not be decoded.
type Event struct {
	Record *store.EventRecord
	Data   any
}

// IsLegacy reports whether Data is a placeholder substituted because the
// stored blob could not be decoded.
func (e *Event) IsLegacy() bool {
	_, ok := e.Data.(*LegacyEvent)
	return ok
}
