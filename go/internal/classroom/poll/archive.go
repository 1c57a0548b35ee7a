package poll

import (
	"slices"

	"github.com/mcdev12/pollroom/go/internal/models"
)

// HistoryLimit is how many closed polls the archive keeps.
const HistoryLimit = 50

// Archive is a bounded, oldest-first record of closed polls. Appending past the
// limit evicts the oldest entries.
type Archive struct {
	entries []models.HistoryEntry
	limit   int
}

// NewArchive creates an archive holding at most limit entries.
func NewArchive(limit int) *Archive {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &Archive{limit: limit}
}

// Append inserts entry and then trims the archive back to its limit.
func (a *Archive) Append(entry models.HistoryEntry) {
	a.entries = append(a.entries, entry)
	if over := len(a.entries) - a.limit; over > 0 {
		a.entries = slices.Clone(a.entries[over:])
	}
}

// Entries returns a deep copy of the archive, oldest first.
func (a *Archive) Entries() []models.HistoryEntry {
	out := make([]models.HistoryEntry, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Clone()
	}
	return out
}

// Len returns the number of archived polls.
func (a *Archive) Len() int {
	return len(a.entries)
}
