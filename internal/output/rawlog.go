package output

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"framestream-go/internal/types"
)

const (
	rawLogMagic = "FSTREC01"
	// MaxRecordSize guards the reader against corrupt length prefixes.
	MaxRecordSize = 256 << 20
)

var ErrBadMagic = errors.New("not a frame recording")

// Record is one published message as stored in a recording.
type Record struct {
	Timestamp int64  `cbor:"ts"`
	Stream    string `cbor:"stream"`
	Message   []byte `cbor:"msg"`
}

func (r Record) Time() time.Time {
	return time.Unix(0, r.Timestamp)
}

// RawLogWriter appends published messages to a recording file: the magic
// followed by records of [u32 little-endian length][CBOR Record].
type RawLogWriter struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
	now  func() time.Time
}

func NewRawLogWriter(outputDir string, prefix string) (*RawLogWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.fsrec", timestamp, prefix))
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriterSize(f, 1024*1024)
	if _, err := w.WriteString(rawLogMagic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &RawLogWriter{
		f:    f,
		w:    w,
		path: filename,
		now:  time.Now,
	}, nil
}

func (r *RawLogWriter) Path() string {
	return r.path
}

// Record stores msg under stream st. It satisfies publisher.Recorder.
func (r *RawLogWriter) Record(st types.StreamType, msg []byte) error {
	payload, err := cbor.Marshal(Record{
		Timestamp: r.now().UnixNano(),
		Stream:    st.String(),
		Message:   msg,
	})
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return fmt.Errorf("raw log writer is closed")
	}
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(payload)))
	if _, err := r.w.Write(size[:]); err != nil {
		return err
	}
	if _, err := r.w.Write(payload); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *RawLogWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		_ = r.f.Close()
		r.w = nil
		return err
	}
	err := r.f.Close()
	r.w = nil
	return err
}

type RawLogReader struct {
	r *bufio.Reader
}

// NewRawLogReader checks the magic and positions the reader at the first record.
func NewRawLogReader(rd io.Reader) (*RawLogReader, error) {
	br := bufio.NewReader(rd)
	magic := make([]byte, len(rawLogMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != rawLogMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, magic)
	}
	return &RawLogReader{r: br}, nil
}

// Next returns the next record, or io.EOF after the last complete one. A
// record cut short by a crash also ends the stream with io.EOF.
func (r *RawLogReader) Next() (Record, error) {
	var size [4]byte
	if _, err := io.ReadFull(r.r, size[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return Record{}, err
	}
	n := binary.LittleEndian.Uint32(size[:])
	if n > MaxRecordSize {
		return Record{}, fmt.Errorf("record size %d exceeds limit", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return Record{}, err
	}
	var rec Record
	if err := cbor.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
