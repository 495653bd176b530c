package logging

import (
	"bytes"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxLineLength caps a buffered partial line before it is flushed as-is
const maxLineLength = 8192

// LineWriter is an io.Writer that emits one log entry per output line.
// Hosted runtime stdout and stderr are funnelled through it so each line
// reaches the log sink separately instead of as truncated chunks.
type LineWriter struct {
	logger *Logger
	level  zapcore.Level
	fields []zap.Field

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLineWriter creates a writer logging each line at level
func NewLineWriter(logger *Logger, level zapcore.Level, fields ...zap.Field) *LineWriter {
	return &LineWriter{logger: logger, level: level, fields: fields}
}

// Write buffers p and logs every complete line
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			if w.buf.Len() >= maxLineLength {
				w.emit(w.buf.String())
				w.buf.Reset()
			}
			break
		}
		w.emit(string(data[:i]))
		w.buf.Next(i + 1)
	}
	return len(p), nil
}

// Flush logs any buffered partial line
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *LineWriter) emit(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	if ce := w.logger.Check(w.level, line); ce != nil {
		ce.Write(w.fields...)
	}
}
