package checkpoint

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"github.com/logminer/redocore/redolib/rerr"
	"github.com/logminer/redocore/redolib/recordtype"
)

// StateStore is the abstract key-value surface (spec §6.3):
// list/read/write/drop. File naming conventions from spec §6.3:
// "<db>-chkpt-<scn>" for checkpoints, "<db>-schema-<scn>" for detached
// schema snapshots, "base-<version>" for the adaptive-schema bootstrap.
type StateStore interface {
	List() ([]string, error)
	Read(name string, maxSize int64) ([]byte, error)
	Write(name string, scn recordtype.Scn, payload []byte) error
	Drop(name string) error
}

// DirStateStore is the default StateStore: a directory of JSON files
// (spec §4.7), guarded against concurrent external writers with
// gofrs/flock (DESIGN.md domain-stack wiring) and encoded with
// goccy/go-json for speed.
type DirStateStore struct {
	dir string
}

func NewDirStateStore(dir string) (*DirStateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, rerr.Wrap(rerr.StateStoreError, 0, err, "create checkpoint directory")
	}
	return &DirStateStore{dir: dir}, nil
}

func (d *DirStateStore) path(name string) string {
	return filepath.Join(d.dir, name+".json")
}

func (d *DirStateStore) List() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, rerr.Wrap(rerr.StateStoreError, 0, err, "list checkpoint directory")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (d *DirStateStore) Read(name string, maxSize int64) ([]byte, error) {
	f, err := os.Open(d.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rerr.Wrap(rerr.NotReady, 0, err, "checkpoint key not present")
		}
		return nil, rerr.Wrap(rerr.StateStoreError, 0, err, "open checkpoint key")
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, rerr.Wrap(rerr.StateStoreError, 0, err, "stat checkpoint key")
	}
	if maxSize > 0 && st.Size() > maxSize {
		return nil, rerr.New(rerr.StateStoreError, 0, "checkpoint key exceeds max_size")
	}
	buf := make([]byte, st.Size())
	if _, err := f.Read(buf); err != nil {
		return nil, rerr.Wrap(rerr.StateStoreError, 0, err, "read checkpoint key")
	}
	return buf, nil
}

func (d *DirStateStore) Write(name string, scn recordtype.Scn, payload []byte) error {
	lockPath := filepath.Join(d.dir, ".lock")
	lk := flock.New(lockPath)
	if err := lk.Lock(); err != nil {
		return rerr.Wrap(rerr.StateStoreError, 0, err, "acquire checkpoint directory lock")
	}
	defer lk.Unlock()

	tmp := d.path(name) + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return rerr.Wrap(rerr.StateStoreError, 0, err, "write checkpoint key")
	}
	if err := os.Rename(tmp, d.path(name)); err != nil {
		return rerr.Wrap(rerr.StateStoreError, 0, err, "commit checkpoint key")
	}
	return nil
}

func (d *DirStateStore) Drop(name string) error {
	if err := os.Remove(d.path(name)); err != nil && !os.IsNotExist(err) {
		return rerr.Wrap(rerr.StateStoreError, 0, err, "drop checkpoint key")
	}
	return nil
}

// EncodeCheckpoint/DecodeCheckpoint use goccy/go-json (ambient JSON
// codec, DESIGN.md) with its default Marshal/Unmarshal behaviour; no
// strict or tag-checking mode is applied.
func EncodeCheckpoint(c Checkpoint) ([]byte, error) {
	return json.Marshal(c)
}

func DecodeCheckpoint(b []byte) (Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(b, &c); err != nil {
		return Checkpoint{}, rerr.Wrap(rerr.StateStoreError, 0, err, "decode checkpoint payload")
	}
	return c, nil
}

func checkpointKeyName(db string, scn recordtype.Scn) string {
	return db + "-chkpt-" + strconv.FormatUint(uint64(scn), 10)
}

func schemaKeyName(db string, scn recordtype.Scn) string {
	return db + "-schema-" + strconv.FormatUint(uint64(scn), 10)
}

func parseChkptScn(db, name string) (recordtype.Scn, bool) {
	prefix := db + "-chkpt-"
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(name, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return recordtype.Scn(n), true
}

func parseSchemaScn(db, name string) (recordtype.Scn, bool) {
	prefix := db + "-schema-"
	if !strings.HasPrefix(name, prefix) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(name, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return recordtype.Scn(n), true
}
