package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/logminer/redocore/checkpoint"
	"github.com/logminer/redocore/emitter"
	"github.com/logminer/redocore/redolib/recordtype"
)

type fixedSource struct {
	scn    recordtype.Scn
	seq    recordtype.Seq
	offset recordtype.FileOffset
}

func (f fixedSource) Snapshot() (recordtype.Scn, recordtype.Seq, recordtype.FileOffset, *checkpoint.MinOpenTxn) {
	return f.scn, f.seq, f.offset, nil
}

func TestConfigDerivedSubConfigs(t *testing.T) {
	cfg := Config{
		Database:      "ORCL",
		MemoryMinMB:   64,
		MemoryMaxMB:   256,
		ReadBufferMax: 16,
		DisableChecks: DisableChecksFlags{BlockSum: true, SupplementalLog: true},
		Flags:         FeatureFlags{AdaptiveSchema: true},
	}

	rc := cfg.readerConfig()
	require.True(t, rc.DisableBlockSum)
	require.Equal(t, 16, rc.ReadBufferMax)

	sf := cfg.schemaFlags()
	require.True(t, sf.AdaptiveSchema)
	require.False(t, sf.DatabaseSupplementalLog) // disable-checks SUPPLEMENTAL_LOG inverts it

	cc := cfg.checkpointConfig()
	require.Equal(t, "ORCL", cc.Database)
}

func TestEngineRunStopsOnContextCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := emitter.NewMockSink(ctrl)

	e, err := New(Config{Database: "ORCL", CheckpointIntervalS: 3600}, sink, DirStateStoreFactory{Dir: t.TempDir()}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err = e.Run(ctx)
	require.NoError(t, err)
	require.True(t, e.Shutdown.Triggered())
}

// TestEngineResumesFromExistingCheckpoint exercises spec §4.7 Recovery as
// wired into Engine.New: a checkpoint written before the engine starts
// must be reflected in the resume point runReadAndParse positions its
// RecordAssembler from.
func TestEngineResumesFromExistingCheckpoint(t *testing.T) {
	dir := t.TempDir()
	ss, err := checkpoint.NewDirStateStore(filepath.Join(dir, "ORCL"))
	require.NoError(t, err)

	src := fixedSource{scn: 500, seq: 7, offset: 4096}
	ckpt := checkpoint.New(checkpoint.Config{Database: "ORCL"}, ss, src, nil)
	require.NoError(t, ckpt.WriteCheckpoint(false))

	sink := emitter.NewMockSink(gomock.NewController(t))
	e, err := New(Config{Database: "ORCL"}, sink, DirStateStoreFactory{Dir: dir}, nil)
	require.NoError(t, err)

	require.True(t, e.resumed)
	require.Equal(t, recordtype.Seq(7), e.resume.Sequence)
	require.Equal(t, recordtype.FileOffset(4096), e.resume.Offset)
}

func TestSnapshotWithNoOpenTransactions(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := emitter.NewMockSink(ctrl)

	e, err := New(Config{Database: "ORCL"}, sink, DirStateStoreFactory{Dir: t.TempDir()}, nil)
	require.NoError(t, err)

	_, _, _, minOpen := e.Snapshot()
	require.Nil(t, minOpen)
}
