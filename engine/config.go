// Package engine wires the four logical tasks (Parser, ReaderIO,
// Emitter/Writer, Checkpointer) behind one explicit Context and one
// Shutdown handle, replacing the original source's global mtx/condvars
// (spec §9 DESIGN NOTES). Grounded on turbo/snapshotsync/
// snapshotsync.go's ctx.Done()/ticker supervision shape and
// golang.org/x/sync/errgroup.
package engine

import (
	"time"

	"github.com/logminer/redocore/checkpoint"
	"github.com/logminer/redocore/reader"
	"github.com/logminer/redocore/redolib/recordtype"
	"github.com/logminer/redocore/schema"
)

// DisableChecksFlags mirrors spec §6.4's disable-checks bitmask.
type DisableChecksFlags struct {
	BlockSum        bool
	SupplementalLog bool
	JSONTags        bool
}

// FeatureFlags mirrors spec §6.4's flags bitmask.
type FeatureFlags struct {
	Schemaless                bool
	AdaptiveSchema             bool
	ShowDDL                    bool
	ShowHiddenColumns          bool
	ShowGuardColumns           bool
	ShowNestedColumns          bool
	ShowUnusedColumns          bool
	ExperimentalXMLType        bool
	ExperimentalJSON           bool
	ExperimentalNotNullMissing bool
	DirectDisable              bool
	ArchOnly                   bool
	CheckpointKeep             bool
}

// StartPosition is the union from spec §6.4: "one of {start_scn,
// start_sequence, start_time, start_time_rel, now}; at most one of time
// forms."
type StartPosition struct {
	Scn         recordtype.Scn
	Sequence    recordtype.Seq
	Time        time.Time
	TimeRelative time.Duration
	Now         bool
}

// Config enumerates every spec §6.4 option. Loading a Config from a
// file/flags/env is explicitly out of scope (spec §1 Non-goals); callers
// build one however they like and pass it to New.
type Config struct {
	Database string
	RedoPath string
	Backend  reader.Backend

	MemoryMinMB int
	MemoryMaxMB int

	ReadBufferMax int

	CheckpointIntervalS  int
	CheckpointIntervalMB int
	CheckpointKeep       int

	ArchReadSleepUs int
	ArchReadTries   int
	RedoReadSleepUs int
	RefreshIntervalUs int

	DisableChecks DisableChecksFlags
	Flags         FeatureFlags

	Start StartPosition

	// StopOwner/StopTable: SUPPLEMENTED debug single-table shutdown
	// (grounded on Checkpoint.cpp's debugOwner/debugTable).
	StopOwner, StopTable string
}

func (c Config) readerConfig() reader.Config {
	return reader.Config{
		ReadBufferMax:   c.ReadBufferMax,
		ArchReadTries:   c.ArchReadTries,
		ArchReadSleepUs: c.ArchReadSleepUs,
		RedoReadSleepUs: c.RedoReadSleepUs,
		DisableBlockSum: c.DisableChecks.BlockSum,
	}
}

func (c Config) schemaFlags() schema.Flags {
	return schema.Flags{
		Schemaless:              c.Flags.Schemaless,
		AdaptiveSchema:          c.Flags.AdaptiveSchema,
		ShowHiddenColumns:       c.Flags.ShowHiddenColumns,
		ShowGuardColumns:        c.Flags.ShowGuardColumns,
		ShowNestedColumns:       c.Flags.ShowNestedColumns,
		ShowUnusedColumns:       c.Flags.ShowUnusedColumns,
		ExperimentalXMLType:     c.Flags.ExperimentalXMLType,
		DatabaseSupplementalLog: !c.DisableChecks.SupplementalLog,
	}
}

func (c Config) checkpointConfig() checkpoint.Config {
	return checkpoint.Config{
		Database:        c.Database,
		IntervalSeconds: c.CheckpointIntervalS,
		IntervalMB:      c.CheckpointIntervalMB,
		Keep:            c.CheckpointKeep,
		ForceKeepAll:    c.Flags.CheckpointKeep,
		StartScn:        c.Start.Scn,
	}
}
