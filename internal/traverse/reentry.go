package traverse

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/release-tools/refwalk/internal/model"
)

// Granularity selects the reentry guard's key.
type Granularity int

const (
	// ByModule admits any version of a module at most once per run.
	ByModule Granularity = iota
	// ByModuleVersion admits each distinct module+version pair once.
	ByModuleVersion
)

// Guard is the per-run visited set. It both guarantees termination on
// cyclic reference graphs and prevents duplicate work on diamonds. A
// Guard is scoped to one traversal invocation and never persisted.
//
// Keys are interned to dense uint32 IDs held in a roaring bitmap, so
// membership stays cheap even for large graphs.
type Guard struct {
	granularity Granularity
	ids         map[string]uint32
	seen        *roaring.Bitmap
	next        uint32
}

func NewGuard(g Granularity) *Guard {
	return &Guard{
		granularity: g,
		ids:         make(map[string]uint32),
		seen:        roaring.New(),
	}
}

func (g *Guard) key(mv model.ModuleVersion) string {
	if g.granularity == ByModule {
		return string(mv.Path)
	}
	return mv.String()
}

// ShouldProcess returns true exactly once per key: the first call
// records the key and admits it, every later call with an equal key
// is refused.
func (g *Guard) ShouldProcess(mv model.ModuleVersion) bool {
	k := g.key(mv)
	id, ok := g.ids[k]
	if !ok {
		id = g.next
		g.next++
		g.ids[k] = id
	}
	if g.seen.Contains(id) {
		return false
	}
	g.seen.Add(id)
	return true
}

// Seen reports whether mv was already admitted, without recording it.
func (g *Guard) Seen(mv model.ModuleVersion) bool {
	id, ok := g.ids[g.key(mv)]
	return ok && g.seen.Contains(id)
}
