package reconcile

import (
	"github.com/dbsmedya/goreconcile/internal/index"
)

// Side names one of the two trees.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Plan is the full set of actions for one run, computed before anything
// is mutated.
type Plan struct {
	RootA string
	RootB string

	KeepA []*index.FileRecord
	KeepB []*index.FileRecord

	RemoveA []*index.FileRecord
	RemoveB []*index.FileRecord

	// MissingFromA holds B's keepers to copy into A.
	MissingFromA []*index.FileRecord
	// MissingFromB holds A's keepers to copy into B.
	MissingFromB []*index.FileRecord
}

// BuildPlan combines the resolutions of both trees into a Plan.
func BuildPlan(resA, resB *Resolution) *Plan {
	missingFromB, missingFromA := Diff(resA.Keepers, resB.Keepers)
	return &Plan{
		RootA:        resA.Root,
		RootB:        resB.Root,
		KeepA:        resA.Kept,
		KeepB:        resB.Kept,
		RemoveA:      resA.ToRemove,
		RemoveB:      resB.ToRemove,
		MissingFromA: missingFromA,
		MissingFromB: missingFromB,
	}
}

// Root returns the root of side.
func (p *Plan) Root(side Side) string {
	if side == SideA {
		return p.RootA
	}
	return p.RootB
}

// Removals returns the records to delete from side.
func (p *Plan) Removals(side Side) []*index.FileRecord {
	if side == SideA {
		return p.RemoveA
	}
	return p.RemoveB
}

// CopiesInto returns the records to copy into side.
func (p *Plan) CopiesInto(side Side) []*index.FileRecord {
	if side == SideA {
		return p.MissingFromA
	}
	return p.MissingFromB
}

// BytesInto is the total size of the copies targeting side.
func (p *Plan) BytesInto(side Side) int64 {
	var total int64
	for _, rec := range p.CopiesInto(side) {
		total += rec.Size
	}
	return total
}

// Mutations counts removals and copies.
func (p *Plan) Mutations() int {
	return len(p.RemoveA) + len(p.RemoveB) + len(p.MissingFromA) + len(p.MissingFromB)
}

// Empty reports whether the plan changes nothing.
func (p *Plan) Empty() bool {
	return p.Mutations() == 0
}
