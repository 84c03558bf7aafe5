package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DefaultFlushInterval bounds how long a record may sit in memory before
// it reaches the file.
const DefaultFlushInterval = time.Second

// JSONLSink appends zstd-compressed JSONL files under dir, one file per
// hour of wall time: <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst. Records are
// buffered and pushed through the encoder at most every FlushInterval.
type JSONLSink struct {
	dir    string
	prefix string
	now    func() time.Time

	FlushInterval time.Duration

	mu        sync.Mutex
	curHour   string
	f         *os.File
	enc       *zstd.Encoder
	w         *bufio.Writer
	lastFlush time.Time
}

func NewJSONLSink(dir, prefix string) *JSONLSink {
	if prefix == "" {
		prefix = "audit"
	}
	return &JSONLSink{dir: dir, prefix: prefix, now: time.Now, FlushInterval: DefaultFlushInterval}
}

func (s *JSONLSink) Write(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	hour := now.UTC().Format("2006-01-02-15")
	if hour != s.curHour {
		if err := s.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	if now.Sub(s.lastFlush) >= s.FlushInterval {
		return s.flushLocked(now)
	}
	return nil
}

// Flush pushes buffered records through the encoder to the file.
func (s *JSONLSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(s.now())
}

func (s *JSONLSink) flushLocked(now time.Time) error {
	s.lastFlush = now
	if s.w == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.enc.Flush()
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

// Path returns the file records for the given wall time land in.
func (s *JSONLSink) Path(t time.Time) string {
	return s.pathForHour(t.UTC().Format("2006-01-02-15"))
}

func (s *JSONLSink) rotateLocked(hour string) error {
	if err := s.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(s.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("zstd writer: %w", err)
	}
	s.f = f
	s.enc = enc
	s.w = bufio.NewWriterSize(enc, 64*1024)
	s.curHour = hour
	s.lastFlush = s.now()
	return nil
}

func (s *JSONLSink) closeLocked() error {
	var err error
	if s.w != nil {
		_ = s.w.Flush()
	}
	if s.enc != nil {
		err = s.enc.Close()
		s.enc = nil
	}
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
	s.w = nil
	s.curHour = ""
	return err
}

func (s *JSONLSink) pathForHour(hour string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s.jsonl.zst", s.prefix, hour))
}

// ReadJSONL decodes every record from a compressed audit file.
func ReadJSONL(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	var out []Record
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return out, fmt.Errorf("decode audit line: %w", err)
		}
		out = append(out, r)
	}
	return out, sc.Err()
}
