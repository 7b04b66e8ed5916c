package log

// Atomic storage for binary records
//
// Supports appending binary records atomically with respect to crashes.
// The durable store journals key-value updates through this layer: each
// record is a serialized batch of updates, and recovery returns exactly
// the records whose commit marker made it to disk.
//
// API:
// - Add: commits a record
// - Recover: returns the successfully committed records
// - Close: closes the underlying log file
//
// How to use this API:
// - Serialize store-level update batches and add them as records.
// - Cache all writes in memory and serve reads from there.
// - On open, replay the recovered records over the last snapshot, then
//   truncate the log once a new snapshot is written.

import (
	"encoding/gob"
	"io"
)

type recordType uint8

const (
	invalidRecord recordType = iota
	dataRecord
	commitRecord
)

type record struct {
	Type recordType
	Data []byte
}

// LogFile is the destination of the journal.
type LogFile interface {
	io.WriteCloser
	Sync()
}

// Writer appends committed records to a log file.
type Writer struct {
	log LogFile
	enc *gob.Encoder
}

// New creates a Writer over an empty log file.
func New(f LogFile) Writer {
	return Writer{f, gob.NewEncoder(f)}
}

// Add appends one record and syncs it; when Add returns, the record will
// survive a crash.
func (l Writer) Add(data []byte) {
	l.enc.Encode(record{dataRecord, data})
	l.log.Sync()
	l.enc.Encode(record{commitRecord, nil})
	l.log.Sync()
}

func (l Writer) Close() {
	l.log.Close()
}

// Recover returns the committed records in a log file, in order. A
// trailing partial record (one missing its commit marker) is ignored.
func Recover(log io.Reader) (records [][]byte) {
	dec := gob.NewDecoder(log)
	for {
		var data record
		err := dec.Decode(&data)
		if err != nil {
			// interpret this as a partial record
			return
		}
		if data.Type != dataRecord {
			panic("expected data record")
		}
		var commit record
		err = dec.Decode(&commit)
		if err != nil {
			// data record was not successfully committed, so ignore it
			return
		}
		if commit.Type != commitRecord {
			panic("expected commit record")
		}
		records = append(records, data.Data)
	}
}
