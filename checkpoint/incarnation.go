package checkpoint

import (
	"sync"

	"github.com/logminer/redocore/redolib/kv"
	"github.com/logminer/redocore/redolib/recordtype"
)

// IncarnationStatus mirrors OracleIncarnation's status field.
type IncarnationStatus int

const (
	IncarnationCurrent IncarnationStatus = iota
	IncarnationParent
	IncarnationOrphan
)

// Incarnation is one branch of the redo stream after a resetlogs
// (spec §4.8; SUPPLEMENTED FEATURES: full chain retention, grounded on
// original_source/src/metadata/OracleIncarnation.cpp).
type Incarnation struct {
	ID                uint32
	ResetlogsScn      recordtype.Scn
	PriorResetlogsScn recordtype.Scn
	Status            IncarnationStatus
	ResetlogsID       uint32
	PriorIncarnation  uint32
}

// Incarnations retains the full incarnation chain, not just the current
// branch, so recovery can answer "was SCN X ever on a now-abandoned
// branch" (SUPPLEMENTED FEATURES). Indexed by ID via redolib/kv.Ordered
// (google/btree-backed, DESIGN.md domain-stack wiring) rather than a
// linear scan, since WasAbandoned walks the ancestor chain by ID on
// every recovery candidate.
type Incarnations struct {
	mu      sync.RWMutex
	byID    *kv.Ordered[uint32, Incarnation]
	current uint32
}

func NewIncarnations() *Incarnations {
	return &Incarnations{byID: kv.NewOrdered[uint32, Incarnation]()}
}

// Switch stores inc (replacing any entry with the same ID) and makes it
// the current incarnation. It only updates this chain: it does not reset
// a sequence, clear an activation id, or force a schema checkpoint.
func (i *Incarnations) Switch(inc Incarnation) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.byID.Upsert(inc.ID, inc)
	i.current = inc.ID
}

func (i *Incarnations) Current() (Incarnation, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.byID.Get(i.current)
}

// WasAbandoned reports whether scn ever belonged to an incarnation that
// is no longer current and is not an ancestor of the current one
// (SUPPLEMENTED FEATURES: recovery rejects a checkpoint referencing a
// superseded incarnation).
func (i *Incarnations) WasAbandoned(scn recordtype.Scn) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	ancestors := map[uint32]bool{i.current: true}
	for id := i.current; ; {
		found, ok := i.byID.Get(id)
		if !ok || found.PriorIncarnation == 0 || found.PriorIncarnation == id {
			break
		}
		ancestors[found.PriorIncarnation] = true
		id = found.PriorIncarnation
	}
	abandoned := false
	i.byID.Ascend(func(_ uint32, inc Incarnation) bool {
		if inc.ResetlogsScn == scn && !ancestors[inc.ID] {
			abandoned = true
			return false
		}
		return true
	})
	return abandoned
}
