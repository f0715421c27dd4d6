// Package lob implements spec §4.6: piecewise assembly of CLOB/BLOB/
// XMLType values from lob-index and fragment pages keyed by
// (OBJ, LOB_ID, page_no), with orphan-page parking and charset decode.
package lob

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/logminer/redocore/redolib/recordtype"
)

// pageKey identifies one LOB page (spec §4.6: "keyed by {obj, lobId,
// page_no}").
type pageKey struct {
	obj    recordtype.Obj
	lobID  uint32
	pageNo uint32
}

// locatorKey identifies a LOB value under assembly, prior to knowing its
// full page count.
type locatorKey struct {
	obj   recordtype.Obj
	lobID uint32
}

// inProgress accumulates pages for one locator until its declared length
// is satisfied.
type inProgress struct {
	pages      map[uint32][]byte
	wantLength int
	gotBytes   int
}

// Assembler is the LobAssembler (spec §4.6). Safe for single-writer use
// from the Parser task; the orphan-page cache is bounded via
// hashicorp/golang-lru so a stream of never-resolved locators cannot grow
// memory unboundedly (DESIGN.md domain-stack wiring).
type Assembler struct {
	mu      sync.Mutex
	active  map[locatorKey]*inProgress
	orphans *lru.Cache[pageKey, []byte] // spec §4.6: "parked in an orphan map"
}

func New(orphanCapacity int) *Assembler {
	if orphanCapacity <= 0 {
		orphanCapacity = 4096
	}
	c, _ := lru.New[pageKey, []byte](orphanCapacity)
	return &Assembler{active: make(map[locatorKey]*inProgress), orphans: c}
}

// FeedIndex records a lob-index page (opcode 19.x/20.x): it tells the
// assembler which page numbers belong to a locator before or after the
// page bytes themselves arrive.
func (a *Assembler) FeedIndex(obj recordtype.Obj, lobID uint32, pageNo uint32, payload []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	lk := locatorKey{obj: obj, lobID: lobID}
	ip, ok := a.active[lk]
	if !ok {
		ip = &inProgress{pages: make(map[uint32][]byte)}
		a.active[lk] = ip
	}
	if page, ok := a.orphans.Get(pageKey{obj: obj, lobID: lobID, pageNo: pageNo}); ok {
		ip.pages[pageNo] = page
		ip.gotBytes += len(page)
		a.orphans.Remove(pageKey{obj: obj, lobID: lobID, pageNo: pageNo})
	}
}

// FeedData records a LOB data page (opcode 26.x). If no locator has
// claimed (obj, lobID) yet, the page is parked as an orphan
// (spec §4.6 "Orphan handling").
func (a *Assembler) FeedData(obj recordtype.Obj, lobID uint32, pageNo uint32, payload []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	lk := locatorKey{obj: obj, lobID: lobID}
	ip, ok := a.active[lk]
	if !ok {
		a.orphans.Add(pageKey{obj: obj, lobID: lobID, pageNo: pageNo}, append([]byte(nil), payload...))
		return
	}
	ip.pages[pageNo] = append([]byte(nil), payload...)
	ip.gotBytes += len(payload)
}

// Begin registers a locator's declared length; Ready and Join take the
// same (obj, lobID) once all pages have arrived.
func (a *Assembler) Begin(obj recordtype.Obj, lobID uint32, length int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	lk := locatorKey{obj: obj, lobID: lobID}
	if _, ok := a.active[lk]; !ok {
		a.active[lk] = &inProgress{pages: make(map[uint32][]byte)}
	}
	a.active[lk].wantLength = length
}

// Ready reports whether every page for (obj, lobID) has arrived.
func (a *Assembler) Ready(obj recordtype.Obj, lobID uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	ip, ok := a.active[locatorKey{obj: obj, lobID: lobID}]
	return ok && ip.wantLength > 0 && ip.gotBytes >= ip.wantLength
}

// Join concatenates pages in ascending page-number order into one
// contiguous buffer and releases the in-progress state (spec §4.6:
// "gathers pages in order, joins them into a contiguous byte buffer").
func (a *Assembler) Join(obj recordtype.Obj, lobID uint32) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	lk := locatorKey{obj: obj, lobID: lobID}
	ip, ok := a.active[lk]
	if !ok {
		return nil, false
	}
	delete(a.active, lk)

	pageNos := make([]uint32, 0, len(ip.pages))
	for n := range ip.pages {
		pageNos = append(pageNos, n)
	}
	sort.Slice(pageNos, func(i, j int) bool { return pageNos[i] < pageNos[j] })

	out := make([]byte, 0, ip.gotBytes)
	for _, n := range pageNos {
		out = append(out, ip.pages[n]...)
	}
	return out, true
}
