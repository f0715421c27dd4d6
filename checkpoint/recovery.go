package checkpoint

import (
	"sort"

	"github.com/logminer/redocore/redolib/rerr"
	"github.com/logminer/redocore/redolib/recordtype"
)

// ResumePoint is what Recover derives: the {sequence, offset} to restart
// reading from, and the checkpoint it came from (spec §4.7 Recovery
// paragraph).
type ResumePoint struct {
	Sequence recordtype.Seq
	Offset   recordtype.FileOffset
	Chkpt    Checkpoint
}

// SchemaImporter loads a previously-Exported SchemaSnapshot back into
// the live shadow dictionary (spec §4.7 Recovery: "If the checkpoint
// references a schema snapshot by ref_scn, load that snapshot;
// otherwise require the checkpoint itself to include the full
// snapshot"). Implemented by package schema.
type SchemaImporter interface {
	Import(data []byte) error
}

// Recover lists all "<db>-chkpt-*" keys, and for each SCN <= startScn
// (or the highest when startScn is ScnNone) loads descending until one
// succeeds, deriving the resume point from min-open-txn if present, else
// from the top-level sequence/offset (spec §4.7). When schema is
// non-nil, the chosen checkpoint's schema snapshot (full or by ref) is
// loaded into it; a checkpoint written before schema-snapshot
// persistence was configured simply has no matching key and is left
// alone, since that is the normal first-run/pre-upgrade case rather
// than a corruption.
func Recover(store StateStore, db string, startScn recordtype.Scn, incarnations *Incarnations, schema SchemaImporter) (ResumePoint, error) {
	names, err := store.List()
	if err != nil {
		return ResumePoint{}, err
	}

	var scns []recordtype.Scn
	for _, n := range names {
		if scn, ok := parseChkptScn(db, n); ok {
			scns = append(scns, scn)
		}
	}
	sort.Slice(scns, func(i, j int) bool { return scns[i] > scns[j] }) // descending

	for _, scn := range scns {
		if startScn != recordtype.ScnNone && scn > startScn {
			continue
		}
		if incarnations != nil && incarnations.WasAbandoned(scn) {
			continue // SUPPLEMENTED: reject a checkpoint on a superseded incarnation
		}
		payload, err := store.Read(checkpointKeyName(db, scn), 0)
		if err != nil {
			continue // try the next older checkpoint
		}
		c, err := DecodeCheckpoint(payload)
		if err != nil {
			continue
		}

		if schema != nil {
			if err := loadSchemaSnapshot(store, db, c, schema); err != nil {
				return ResumePoint{}, err
			}
		}

		if c.MinOpenTxn != nil {
			return ResumePoint{Sequence: c.MinOpenTxn.Seq, Offset: c.MinOpenTxn.Offset, Chkpt: c}, nil
		}
		return ResumePoint{Sequence: c.Sequence, Offset: c.Offset, Chkpt: c}, nil
	}
	return ResumePoint{}, rerr.New(rerr.NotReady, 0, "no usable checkpoint found")
}

// loadSchemaSnapshot resolves which "<db>-schema-<scn>" key c refers to
// (its own Scn if it carries the full snapshot, SchemaRefScn if it only
// references one) and imports it. A missing key is tolerated: it means
// this checkpoint predates schema-snapshot persistence.
func loadSchemaSnapshot(store StateStore, db string, c Checkpoint, schema SchemaImporter) error {
	refScn := c.Scn
	if c.HasSchemaRef {
		refScn = c.SchemaRefScn
	}
	payload, err := store.Read(schemaKeyName(db, refScn), 0)
	if err != nil {
		if rerr.Is(err, rerr.NotReady) {
			return nil
		}
		return err
	}
	return schema.Import(payload)
}
