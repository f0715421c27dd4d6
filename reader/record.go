package reader

import (
	"errors"
	"io"

	"github.com/logminer/redocore/redolib/rerr"
	"github.com/logminer/redocore/redolib/recordtype"
)

// recordHeaderSize is the fixed prefix of a RedoRecord within the block
// payload: {size:4, vectorCount:2, scn:8, subscn:2, thread:2}.
const recordHeaderSize = 18

// ErrEndOfLog is returned by RecordAssembler.Next when an Archive-backend
// reader has delivered its last block and no partial record remains.
var ErrEndOfLog = errors.New("reader: end of log")

// ErrOverwritten signals that the online log was switched under the
// assembler (spec §4.2): the caller must restart reading from archive for
// the same sequence. RecordAssembler itself never returns it: a block
// whose header carries another sequence reaches the caller as the
// rerr.Corrupt error that ReadBlock reports.
var ErrOverwritten = errors.New("reader: online log overwritten")

// Record is a logical redo record: header plus raw vector bytes. Vector
// splitting is VectorParser's job (package parser); RecordAssembler only
// guarantees a contiguous, bounds-checked byte slice per record.
type Record struct {
	Scn         recordtype.Scn
	SubScn      recordtype.SubScn
	Thread      uint16
	VectorCount uint16
	Offset      recordtype.FileOffset
	Payload     []byte
}

// RecordAssembler reassembles logical records from a Reader's blocks,
// accumulating across block boundaries when a record's declared size
// exceeds the bytes remaining in the current block (spec §4.2).
type RecordAssembler struct {
	r         *Reader
	blockSize int
	endian    recordtype.Endian

	blockNo  uint32
	inBlock  []byte
	blockPos int
	fileOff  recordtype.FileOffset

	scratch []byte
}

func NewRecordAssembler(r *Reader, info Info) *RecordAssembler {
	return &RecordAssembler{r: r, blockSize: info.BlockSize, endian: info.Endian}
}

// NewRecordAssemblerAt is NewRecordAssembler, but positions the first
// ReadBlock call at startBlock instead of block 0 (spec §4.7 Recovery:
// "restart reading from the checkpointed {sequence, offset}"). The
// caller derives startBlock from a checkpoint.ResumePoint's offset.
func NewRecordAssemblerAt(r *Reader, info Info, startBlock uint32) *RecordAssembler {
	return &RecordAssembler{r: r, blockSize: info.BlockSize, endian: info.Endian, blockNo: startBlock}
}

// Next returns the next Record in (block, position) order, or
// ErrEndOfLog, or the error ReadBlock reported for the next block.
func (a *RecordAssembler) Next() (Record, error) {
	hdr, hdrOff, err := a.readRecordHeader()
	if err != nil {
		return Record{}, err
	}
	size, vectorCount, scn, subscn, thread := hdr.size, hdr.vectorCount, hdr.scn, hdr.subscn, hdr.thread
	if size < recordHeaderSize {
		return Record{}, rerr.New(rerr.Malformed, hdrOff, "record size smaller than header")
	}

	payload := make([]byte, 0, size-recordHeaderSize)
	remaining := int(size) - recordHeaderSize
	for remaining > 0 {
		avail := len(a.inBlock) - a.blockPos
		if avail == 0 {
			if err := a.advanceBlock(); err != nil {
				return Record{}, err
			}
			avail = len(a.inBlock) - a.blockPos
		}
		take := remaining
		if take > avail {
			take = avail
		}
		payload = append(payload, a.inBlock[a.blockPos:a.blockPos+take]...)
		a.blockPos += take
		remaining -= take
	}

	return Record{
		Scn:         scn,
		SubScn:      subscn,
		Thread:      thread,
		VectorCount: vectorCount,
		Offset:      hdrOff,
		Payload:     payload,
	}, nil
}

type recHeader struct {
	size        uint32
	vectorCount uint16
	scn         recordtype.Scn
	subscn      recordtype.SubScn
	thread      uint16
}

func (a *RecordAssembler) readRecordHeader() (recHeader, recordtype.FileOffset, error) {
	if a.inBlock == nil || a.blockPos >= len(a.inBlock) {
		if err := a.advanceBlock(); err != nil {
			return recHeader{}, 0, err
		}
	}
	if len(a.inBlock)-a.blockPos < recordHeaderSize {
		if err := a.advanceBlock(); err != nil {
			return recHeader{}, 0, err
		}
	}
	off := a.fileOff + recordtype.FileOffset(a.blockPos)
	raw := a.inBlock[a.blockPos : a.blockPos+recordHeaderSize]
	h := recHeader{
		size:        a.endian.Uint32(raw[0:4]),
		vectorCount: a.endian.Uint16(raw[4:6]),
		scn:         a.endian.Scn(raw[6:14]),
		subscn:      recordtype.SubScn(a.endian.Uint16(raw[14:16])),
		thread:      a.endian.Uint16(raw[16:18]),
	}
	a.blockPos += recordHeaderSize
	return h, off, nil
}

// advanceBlock pulls the next validated block from the Reader. A block
// header sequence mismatch is passed on as ReadBlock returned it.
func (a *RecordAssembler) advanceBlock() error {
	raw, err := a.r.ReadBlock(a.blockNo)
	if err != nil {
		var e *rerr.Error
		if errors.As(err, &e) && e.Kind == rerr.NotReady && a.r.backend == Online {
			return e // caller polls and retries Next()
		}
		if errors.Is(err, io.EOF) {
			return ErrEndOfLog
		}
		return err
	}
	a.fileOff = recordtype.FileOffset(a.blockNo) * recordtype.FileOffset(a.blockSize)
	a.inBlock = raw[headerSize:]
	a.blockPos = 0
	a.blockNo++
	return nil
}
