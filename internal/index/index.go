package index

import (
	"github.com/elliotchance/orderedmap/v2"
)

// ScanStats counts what the walk saw besides indexed files.
type ScanStats struct {
	Files          int   // Records added to the index
	Bytes          int64 // Total size of indexed records
	Skipped        int   // Entries dropped because stat failed
	UnreadableDirs int   // Subdirectories whose listing failed
	Ignored        int   // Symlinks and other non-regular entries
	Excluded       int   // Files matched by an exclude pattern
}

// DirectoryIndex maps identities to the records found under Root.
// Sequences keep walk order and are never empty.
type DirectoryIndex struct {
	Root    string
	Stats   ScanStats
	entries *orderedmap.OrderedMap[Identity, []*FileRecord]
}

// NewDirectoryIndex creates an empty index for root.
func NewDirectoryIndex(root string) *DirectoryIndex {
	return &DirectoryIndex{
		Root:    root,
		entries: orderedmap.NewOrderedMap[Identity, []*FileRecord](),
	}
}

// Add appends rec to the sequence of its identity.
func (d *DirectoryIndex) Add(rec *FileRecord) {
	id := rec.Identity()
	existing, _ := d.entries.Get(id)
	d.entries.Set(id, append(existing, rec))
	d.Stats.Files++
	d.Stats.Bytes += rec.Size
}

// Get returns a copy of the records for id.
func (d *DirectoryIndex) Get(id Identity) ([]*FileRecord, bool) {
	recs, ok := d.entries.Get(id)
	if !ok {
		return nil, false
	}
	out := make([]*FileRecord, len(recs))
	copy(out, recs)
	return out, true
}

// Has reports whether any record carries id.
func (d *DirectoryIndex) Has(id Identity) bool {
	_, ok := d.entries.Get(id)
	return ok
}

// Identities returns the identities in first-seen order.
func (d *DirectoryIndex) Identities() []Identity {
	return d.entries.Keys()
}

// Len returns the number of distinct identities.
func (d *DirectoryIndex) Len() int {
	return d.entries.Len()
}

// FileCount returns the number of indexed records.
func (d *DirectoryIndex) FileCount() int {
	return d.Stats.Files
}

// Each calls fn for every identity in first-seen order.
func (d *DirectoryIndex) Each(fn func(id Identity, recs []*FileRecord)) {
	for el := d.entries.Front(); el != nil; el = el.Next() {
		fn(el.Key, el.Value)
	}
}

// Duplicates returns the identities with more than one record.
func (d *DirectoryIndex) Duplicates() []Identity {
	var dups []Identity
	d.Each(func(id Identity, recs []*FileRecord) {
		if len(recs) > 1 {
			dups = append(dups, id)
		}
	})
	return dups
}
