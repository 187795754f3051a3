package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/walteh/qlikls/pkg/debug"
)

// LSPWriter implements io.Writer to redirect logs to the client as
// window/logMessage notifications. Entries written before Attach are dropped.
type LSPWriter struct {
	mu   sync.Mutex
	conn *jsonrpc2.Conn
	ctx  context.Context
	id   string
}

func NewLSPWriter(ctx context.Context, id string) *LSPWriter {
	return &LSPWriter{
		ctx: ctx,
		id:  id,
	}
}

// Attach starts forwarding to conn.
func (w *LSPWriter) Attach(conn *jsonrpc2.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn = conn
}

func (s *Server) ApplyLSPWriter(ctx context.Context, w *LSPWriter) context.Context {
	level := zerolog.InfoLevel
	if s.debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(w).Level(level).With().
		Logger().
		Hook(debug.CustomTimeHook{WithColor: false}).
		Hook(debug.CustomCallerHook{WithColor: false}).
		WithContext(ctx)
}

func (s *Server) debugf(ctx context.Context, format string, args ...interface{}) {
	if !s.debug {
		return
	}

	zerolog.Ctx(ctx).Debug().
		Str("id", s.id).
		CallerSkipFrame(1).
		Msg(fmt.Sprintf(format, args...))
}

func (w *LSPWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return len(p), nil
	}

	var logEntry map[string]interface{}
	if err := json.Unmarshal(p, &logEntry); err != nil {
		return len(p), nil // Skip malformed entries
	}

	var level MessageType = Unknown
	if l, ok := logEntry["level"].(string); ok {
		level = ParseMessageTypeFromZerolog(l)
	}

	msg := ""
	if m, ok := logEntry["message"].(string); ok {
		msg = m
		delete(logEntry, "message")
	}

	id := ""
	if i, ok := logEntry["id"].(string); ok {
		id = i
		delete(logEntry, "id") // only tells our own entries apart from library output
	}

	time := ""
	if t, ok := logEntry["time"].(string); ok {
		time = t
		delete(logEntry, "time")
	}

	source := ""
	if s, ok := logEntry["caller"].(string); ok {
		source = s
		delete(logEntry, "caller")
	}

	notification := LogMessageParams{
		Type:    Dependency,
		Message: msg,
		Raw:     string(p),
		Extra:   logEntry,
		Time:    time,
		Source:  source,
	}
	if id == w.id {
		delete(logEntry, "level")
		notification.Type = level
	}

	return len(p), w.conn.Notify(w.ctx, "window/logMessage", notification)
}
