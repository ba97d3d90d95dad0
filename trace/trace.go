// Package trace records bridge calls as a stream of CBOR records.
package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/pmnative/bridge"
)

// canonical mode keeps traces of identical runs byte-identical
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Record is the serialized form of one bridge call.
type Record struct {
	Seq       uint64   `cbor:"1,keyasint"`
	Name      string   `cbor:"2,keyasint"`
	Args      []string `cbor:"3,keyasint,omitempty"`
	Outcome   string   `cbor:"4,keyasint"`
	Phase     string   `cbor:"5,keyasint"`
	Code      int32    `cbor:"6,keyasint,omitempty"`
	Message   string   `cbor:"7,keyasint,omitempty"`
	Result    string   `cbor:"8,keyasint,omitempty"`
	Acquired  int      `cbor:"9,keyasint"`
	Released  int      `cbor:"10,keyasint"`
	Bytes     int      `cbor:"11,keyasint"`
	Micros    int64    `cbor:"12,keyasint"`
	Reclaimed int      `cbor:"13,keyasint,omitempty"`
}

// FromCall converts a call record
func FromCall(rec bridge.CallRecord) Record {
	args := make([]string, len(rec.Args))
	for i, k := range rec.Args {
		args[i] = k.String()
	}
	return Record{
		Seq:       rec.Seq,
		Name:      rec.Name,
		Args:      args,
		Outcome:   rec.Outcome.String(),
		Phase:     rec.Phase.String(),
		Code:      rec.Code,
		Message:   rec.Message,
		Result:    rec.Result,
		Acquired:  rec.Acquired,
		Released:  rec.Released,
		Reclaimed: rec.Reclaimed,
		Bytes:     rec.Bytes,
		Micros:    rec.Elapsed.Microseconds(),
	}
}

// Elapsed returns the call duration
func (r Record) Elapsed() time.Duration {
	return time.Duration(r.Micros) * time.Microsecond
}

func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s(%s) ", r.Seq, r.Name, strings.Join(r.Args, ", "))
	if r.Outcome == bridge.Ok.String() {
		fmt.Fprintf(&b, "= %s", r.Result)
	} else {
		fmt.Fprintf(&b, "!%s in %s", r.Outcome, r.Phase)
		if r.Message != "" {
			fmt.Fprintf(&b, ": %s", r.Message)
		}
	}
	fmt.Fprintf(&b, " [%d/%d buffers", r.Released, r.Acquired)
	if r.Reclaimed > 0 {
		fmt.Fprintf(&b, " (%d reclaimed)", r.Reclaimed)
	}
	fmt.Fprintf(&b, ", %d bytes, %s]", r.Bytes, r.Elapsed())
	return b.String()
}

// Marshal serializes a record to CBOR bytes.
func Marshal(r *Record) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// Unmarshal deserializes a record from CBOR bytes.
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("trace: unmarshal record: %w", err)
	}
	return &r, nil
}

// Writer appends records to a stream. It implements bridge.Observer.
type Writer struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	closer io.Closer
	count  int
	err    error
}

// NewWriter writes records to w
func NewWriter(w io.Writer) *Writer {
	tw := &Writer{enc: cborEncMode.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		tw.closer = c
	}
	return tw
}

// Create writes records to a new file at path
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	return NewWriter(f), nil
}

// ObserveCall encodes rec. After the first failure further records are
// dropped; the failure is reported by Err and Close.
func (w *Writer) ObserveCall(rec bridge.CallRecord) {
	r := FromCall(rec)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	if err := w.enc.Encode(&r); err != nil {
		w.err = fmt.Errorf("trace: encode record %d: %w", r.Seq, err)
		return
	}
	w.count++
}

// Count returns the number of records written
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Err returns the first write failure
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close closes the underlying stream if it can be closed
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var cerr error
	if w.closer != nil {
		cerr = w.closer.Close()
		w.closer = nil
	}
	return errors.Join(w.err, cerr)
}

// ReadAll decodes every record in r
func ReadAll(r io.Reader) ([]Record, error) {
	dec := cbor.NewDecoder(r)
	var out []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("trace: decode record %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
}

// ReadFile decodes every record in the file at path
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	defer f.Close()
	return ReadAll(f)
}
