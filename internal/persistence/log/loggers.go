package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"voxelgate.dev/internal/sim/world"
)

// DefaultSegmentTicks is one hour of ticks at 60 Hz.
const DefaultSegmentTicks = 60 * 60 * 60

// SegmentWriter appends JSON lines to zstd files split by tick. Each segment
// file is named after the first tick it may hold, so a run splits the same
// way regardless of wall-clock speed and files sort in tick order.
type SegmentWriter struct {
	dir          string
	prefix       string
	segmentTicks uint64

	mu     sync.Mutex
	open   bool
	curSeg uint64
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewSegmentWriter(dir, prefix string, segmentTicks uint64) *SegmentWriter {
	if segmentTicks == 0 {
		segmentTicks = DefaultSegmentTicks
	}
	return &SegmentWriter{dir: dir, prefix: prefix, segmentTicks: segmentTicks}
}

// Write appends v to the segment owning tick. Ticks must not go backwards
// across segments; a late entry for an earlier segment reopens that file.
func (w *SegmentWriter) Write(tick uint64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seg := tick - tick%w.segmentTicks
	if !w.open || seg != w.curSeg {
		if err := w.openLocked(seg); err != nil {
			return err
		}
	}
	b = append(b, '\n')
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *SegmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Dir returns the directory segment files are written to.
func (w *SegmentWriter) Dir() string { return w.dir }

func (w *SegmentWriter) openLocked(seg uint64) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	// Appending writes a new zstd frame; readers decode concatenated frames.
	f, err := os.OpenFile(w.segmentPath(seg), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc = f, enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curSeg = seg
	w.open = true
	return nil
}

func (w *SegmentWriter) closeLocked() error {
	if !w.open {
		return nil
	}
	var err error
	if ferr := w.w.Flush(); ferr != nil {
		err = ferr
	}
	if cerr := w.enc.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := w.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	w.f, w.enc, w.w = nil, nil, nil
	w.open = false
	return err
}

func (w *SegmentWriter) segmentPath(seg uint64) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%012d.jsonl.zst", w.prefix, seg))
}

// TickLogger writes one entry per tick under <runDir>/events.
type TickLogger struct{ w *SegmentWriter }

func NewTickLogger(runDir string) *TickLogger {
	return &TickLogger{w: NewSegmentWriter(filepath.Join(runDir, eventsDir), eventsDir, DefaultSegmentTicks)}
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error { return l.w.Write(e.Tick, e) }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// AuditLogger writes accepted edits under <runDir>/audit.
type AuditLogger struct{ w *SegmentWriter }

func NewAuditLogger(runDir string) *AuditLogger {
	return &AuditLogger{w: NewSegmentWriter(filepath.Join(runDir, auditDir), auditDir, DefaultSegmentTicks)}
}

func (l *AuditLogger) WriteAudit(e world.AuditEntry) error { return l.w.Write(e.Tick, e) }
func (l *AuditLogger) Close() error                        { return l.w.Close() }

const (
	eventsDir = "events"
	auditDir  = "audit"
)
