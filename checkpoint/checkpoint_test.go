package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/logminer/redocore/redolib/recordtype"
)

type fakeSource struct {
	scn    recordtype.Scn
	seq    recordtype.Seq
	offset recordtype.FileOffset
}

func (f *fakeSource) Snapshot() (recordtype.Scn, recordtype.Seq, recordtype.FileOffset, *MinOpenTxn) {
	return f.scn, f.seq, f.offset, nil
}

func TestWriteCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStateStore(dir)
	require.NoError(t, err)

	src := &fakeSource{scn: 1000, seq: 5, offset: 4096}
	cp := New(Config{Database: "ORCL", Keep: 5}, store, src, nil)

	require.NoError(t, cp.WriteCheckpoint(false))

	names, err := store.List()
	require.NoError(t, err)
	require.Len(t, names, 1)

	rp, err := Recover(store, "ORCL", recordtype.ScnNone, NewIncarnations(), nil)
	require.NoError(t, err)
	require.Equal(t, recordtype.Seq(5), rp.Sequence)
	require.Equal(t, recordtype.FileOffset(4096), rp.Offset)
}

func TestRetentionDropsOldest(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStateStore(dir)
	require.NoError(t, err)

	src := &fakeSource{}
	cp := New(Config{Database: "ORCL", Keep: 2}, store, src, nil)

	for _, scn := range []recordtype.Scn{100, 200, 300} {
		src.scn = scn
		require.NoError(t, cp.WriteCheckpoint(false))
	}

	names, err := store.List()
	require.NoError(t, err)
	require.Len(t, names, 2)

	_, err = store.Read(checkpointKeyName("ORCL", 100), 0)
	require.Error(t, err)
}

func TestRecoverySkipsAbandonedIncarnation(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStateStore(dir)
	require.NoError(t, err)

	src := &fakeSource{scn: 500, seq: 9, offset: 1}
	cp := New(Config{Database: "ORCL", Keep: 5}, store, src, nil)
	require.NoError(t, cp.WriteCheckpoint(false))

	inc := NewIncarnations()
	// ID 2 (resetlogs 500) and ID 3 both fork from ID 1, so the checkpoint
	// at SCN 500 lies on the abandoned ID-2 branch.
	inc.Switch(Incarnation{ID: 1, ResetlogsScn: 100, Status: IncarnationCurrent})
	inc.Switch(Incarnation{ID: 2, ResetlogsScn: 500, PriorIncarnation: 1, Status: IncarnationOrphan})
	inc.Switch(Incarnation{ID: 3, ResetlogsScn: 600, PriorIncarnation: 1, Status: IncarnationCurrent})

	_, err = Recover(store, "ORCL", recordtype.ScnNone, inc, nil)
	require.Error(t, err)
}

type fakeSchema struct {
	exported []byte
	imported []byte
}

func (f *fakeSchema) Export() ([]byte, error) { return f.exported, nil }
func (f *fakeSchema) Import(data []byte) error {
	f.imported = data
	return nil
}

// TestWriteCheckpointWithSchemaSnapshotRoundTrip is spec §4.7: the first
// checkpoint written with a SchemaSnapshotter installed must carry the
// full snapshot (HasSchemaRef false), and Recover must load it back
// through the supplied SchemaImporter.
func TestWriteCheckpointWithSchemaSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStateStore(dir)
	require.NoError(t, err)

	src := &fakeSource{scn: 1000, seq: 5, offset: 4096}
	cp := New(Config{Database: "ORCL", Keep: 5}, store, src, nil)
	sch := &fakeSchema{exported: []byte(`{"tables":1}`)}
	cp.SetSchemaSnapshotter(sch)

	require.NoError(t, cp.WriteCheckpoint(false))

	payload, err := store.Read(checkpointKeyName("ORCL", 1000), 0)
	require.NoError(t, err)
	ck, err := DecodeCheckpoint(payload)
	require.NoError(t, err)
	require.False(t, ck.HasSchemaRef)

	loader := &fakeSchema{}
	_, err = Recover(store, "ORCL", recordtype.ScnNone, NewIncarnations(), loader)
	require.NoError(t, err)
	require.Equal(t, sch.exported, loader.imported)
}

// TestWriteCheckpointReferencesPriorSchemaSnapshot is spec §4.7: once a
// full snapshot exists, subsequent checkpoints reference it by ref_scn
// instead of re-exporting (unless forced, e.g. by a schema change).
func TestWriteCheckpointReferencesPriorSchemaSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStateStore(dir)
	require.NoError(t, err)

	src := &fakeSource{scn: 1000, seq: 5, offset: 4096}
	cp := New(Config{Database: "ORCL", Keep: 5}, store, src, nil)
	sch := &fakeSchema{exported: []byte(`{"tables":1}`)}
	cp.SetSchemaSnapshotter(sch)
	require.NoError(t, cp.WriteCheckpoint(false))

	src.scn = 2000
	require.NoError(t, cp.WriteCheckpoint(false))

	payload, err := store.Read(checkpointKeyName("ORCL", 2000), 0)
	require.NoError(t, err)
	ck, err := DecodeCheckpoint(payload)
	require.NoError(t, err)
	require.True(t, ck.HasSchemaRef)
	require.Equal(t, recordtype.Scn(1000), ck.SchemaRefScn)

	_, err = store.Read(schemaKeyName("ORCL", 2000), 0)
	require.Error(t, err) // no second snapshot was written
}

func TestRunWritesOnLogSwitch(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStateStore(dir)
	require.NoError(t, err)

	src := &fakeSource{scn: 42, seq: 1, offset: 1}
	cp := New(Config{Database: "ORCL", IntervalSeconds: 3600, Keep: 5}, store, src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	logSwitch := make(chan struct{}, 1)
	schemaChange := make(chan struct{})

	logSwitch <- struct{}{}
	done := make(chan error, 1)
	go func() { done <- cp.Run(ctx, logSwitch, schemaChange) }()

	cancel()
	require.NoError(t, <-done)

	names, err := store.List()
	require.NoError(t, err)
	require.NotEmpty(t, names)
}
