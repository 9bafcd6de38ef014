package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// StatusEvent represents a single status message for SSE.
type StatusEvent struct {
	Time  string `json:"t"`
	Level string `json:"l,omitempty"` // info, error, telemetry, state
	Msg   string `json:"msg"`
}

// StatusBroadcaster distributes log lines, diagnostic telemetry and loop
// state to multiple SSE clients.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}

	lineMu sync.Mutex
	line   strings.Builder // partial telemetry line
}

// NewStatusBroadcaster creates a new broadcaster.
func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Clients returns the number of subscribed clients.
func (b *StatusBroadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends a message to all subscribed clients.
// Messages are sent as JSON: {"t":"...","l":"info","msg":"..."}
// Slow clients may miss messages (non-blocking, buffered).
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	evt := StatusEvent{
		Time:  time.Now().Format(time.RFC3339Nano),
		Level: level,
		Msg:   msg,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastMsg is a convenience for level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// BroadcastState sends v encoded as JSON with level "state".
func (b *StatusBroadcaster) BroadcastState(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		b.Broadcast("error", "encode state: "+err.Error())
		return
	}
	b.Broadcast("state", string(data))
}

// Telemetry accumulates diagnostic chunks as they are transmitted on the
// serial line and broadcasts every completed line with level "telemetry".
// Wall mode sends "<prox>_" and "<dist>\n" separately; clients receive
// them joined as "<prox>_<dist>".
func (b *StatusBroadcaster) Telemetry(chunk string) {
	b.lineMu.Lock()
	var lines []string
	for {
		i := strings.IndexByte(chunk, '\n')
		if i < 0 {
			b.line.WriteString(chunk)
			break
		}
		b.line.WriteString(chunk[:i])
		lines = append(lines, b.line.String())
		b.line.Reset()
		chunk = chunk[i+1:]
	}
	b.lineMu.Unlock()

	for _, l := range lines {
		b.Broadcast("telemetry", l)
	}
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to SSE clients.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps StatusBroadcaster as io.Writer for use with debug.SetOutput.
type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.BroadcastMsg(msg)
	}
	return len(p), nil
}
