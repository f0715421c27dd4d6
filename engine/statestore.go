package engine

import (
	"path/filepath"

	"github.com/logminer/redocore/checkpoint"
)

// DirStateStoreFactory builds a checkpoint.DirStateStore rooted at Dir,
// one subdirectory per database (spec §6.3's "external collaborator"
// framing: this is the default, not the only, implementation).
type DirStateStoreFactory struct {
	Dir string
}

func (f DirStateStoreFactory) Build(database string) (checkpoint.StateStore, error) {
	return checkpoint.NewDirStateStore(filepath.Join(f.Dir, database))
}
