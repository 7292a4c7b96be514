package admin

import (
	"sync"

	"go.uber.org/zap/zapcore"
)

// ringSize bounds the in-memory log tail admin.py's LogResource serves
// (5000 is the source's documented upper bound on "n").
const ringSize = 5000

// LogRing is a zapcore.Core wrapper that keeps the last ringSize encoded
// log lines in memory, for the admin /log and /biglog tailing endpoints
// (SPEC_FULL.md's supplemented features: "a small in-memory ring buffer
// zapcore.Core wrapper"). Check defers to the wrapped core's level, and
// Write returns the wrapped core's error.
type LogRing struct {
	zapcore.Core
	encoder zapcore.Encoder

	mu     sync.Mutex
	lines  []string
	cursor int
	filled bool
}

// NewLogRing wraps an existing core, tee-ing every entry into the ring.
func NewLogRing(core zapcore.Core, encoder zapcore.Encoder) *LogRing {
	return &LogRing{
		Core:    core,
		encoder: encoder,
		lines:   make([]string, ringSize),
	}
}

// Write satisfies zapcore.Core: appends the encoded line to the ring,
// then forwards to the wrapped core.
func (r *LogRing) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := r.encoder.EncodeEntry(entry, fields)
	if err == nil {
		r.mu.Lock()
		r.lines[r.cursor] = buf.String()
		r.cursor = (r.cursor + 1) % ringSize
		if r.cursor == 0 {
			r.filled = true
		}
		r.mu.Unlock()
		buf.Free()
	}
	return r.Core.Write(entry, fields)
}

// Check lets the wrapped core decide whether the entry is enabled, then
// routes the write back through this core so Write is invoked.
func (r *LogRing) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if r.Core.Enabled(entry.Level) {
		return ce.AddCore(entry, r)
	}
	return ce
}

// Tail returns the last n retained lines, oldest first, clamped to
// [10,5000] the way admin.py's LogResource clamps its "n" query param.
func (r *LogRing) Tail(n int) []string {
	if n < 10 {
		n = 10
	}
	if n > ringSize {
		n = ringSize
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var ordered []string
	if r.filled {
		ordered = append(ordered, r.lines[r.cursor:]...)
		ordered = append(ordered, r.lines[:r.cursor]...)
	} else {
		ordered = append(ordered, r.lines[:r.cursor]...)
	}

	if n > len(ordered) {
		n = len(ordered)
	}
	return ordered[len(ordered)-n:]
}
