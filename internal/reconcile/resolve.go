// Package reconcile resolves duplicates, diffs two trees and merges them.
package reconcile

import (
	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/goreconcile/internal/index"
)

// Keepers maps each identity of a tree to its canonical record.
type Keepers = orderedmap.OrderedMap[index.Identity, *index.FileRecord]

// Resolution is the outcome of duplicate resolution for one tree.
type Resolution struct {
	Root string
	// Keepers holds one record per identity in first-seen order.
	Keepers *Keepers
	// Kept lists the keepers of identities that had more than one record.
	Kept []*index.FileRecord
	// ToRemove lists the losing siblings in walk order.
	ToRemove []*index.FileRecord
}

// Resolve picks a keeper for every identity of idx: the record with the
// latest modification time, or the first one walked when times are equal.
// It does not touch the filesystem.
func Resolve(idx *index.DirectoryIndex) *Resolution {
	res := &Resolution{
		Root:    idx.Root,
		Keepers: orderedmap.NewOrderedMap[index.Identity, *index.FileRecord](),
	}

	idx.Each(func(id index.Identity, recs []*index.FileRecord) {
		keeper := recs[0]
		for _, rec := range recs[1:] {
			if rec.ModifiedAt.After(keeper.ModifiedAt) {
				keeper = rec
			}
		}
		res.Keepers.Set(id, keeper)

		if len(recs) == 1 {
			return
		}
		res.Kept = append(res.Kept, keeper)
		for _, rec := range recs {
			if rec != keeper {
				res.ToRemove = append(res.ToRemove, rec)
			}
		}
	})

	return res
}

// Diff compares two keeper maps. Keepers of A whose identity is absent from
// B are returned in missingFromB, and the reverse in missingFromA.
func Diff(keepersA, keepersB *Keepers) (missingFromB, missingFromA []*index.FileRecord) {
	return missing(keepersA, keepersB), missing(keepersB, keepersA)
}

func missing(from, in *Keepers) []*index.FileRecord {
	var out []*index.FileRecord
	for el := from.Front(); el != nil; el = el.Next() {
		if _, ok := in.Get(el.Key); !ok {
			out = append(out, el.Value)
		}
	}
	return out
}
