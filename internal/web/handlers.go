package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/cjeanneret/RoverGo/internal/config"
	"github.com/cjeanneret/RoverGo/internal/debug"
	"github.com/cjeanneret/RoverGo/internal/logic/loop"
)

// MaxRunTicks bounds the tick count a web client may request.
const MaxRunTicks = 1_000_000

// DefaultRunCooldown is the minimum delay between two runs started from the web.
const DefaultRunCooldown = 2 * time.Second

// RunRequest is the body of POST /run.
type RunRequest struct {
	Mode  string `json:"mode"`  // "" keeps the configured mode
	Ticks int    `json:"ticks"` // 0 keeps the configured tick_limit
}

// ValidateRunRequest checks a run request before anything is started.
func ValidateRunRequest(req RunRequest) error {
	switch req.Mode {
	case "", config.ModeLine, config.ModeWall:
	default:
		return fmt.Errorf("mode must be %q or %q", config.ModeLine, config.ModeWall)
	}
	if req.Ticks < 0 || req.Ticks > MaxRunTicks {
		return fmt.Errorf("ticks must be between 0 and %d", MaxRunTicks)
	}
	return nil
}

// RunLoopFunc runs the control loop until ctx is cancelled or the
// tick limit is reached. It is called from the POST /run handler in a goroutine.
type RunLoopFunc func(ctx context.Context, req RunRequest) error

// StateFunc returns the state of the last completed tick.
type StateFunc func() loop.State

// Settings holds the read-only calibration shown by the web page.
type Settings struct {
	Mode               string  `json:"mode"`
	Samples            int     `json:"samples"`
	Kp                 float64 `json:"kp"`
	DeadBand           float64 `json:"dead_band"`
	DifferentiateTurns bool    `json:"differentiate_turns"`
	TurnDistance       float64 `json:"turn_distance"`
	ProximityThreshold float64 `json:"proximity_threshold"`
	ReverseMs          int     `json:"reverse_ms"`
	MockHardware       bool    `json:"mock_hardware"`
}

// SettingsFromConfig extracts the web settings from the configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Mode:               cfg.Mode,
		Samples:            cfg.Sampling.Samples,
		Kp:                 cfg.Line.Kp,
		DeadBand:           cfg.Line.DeadBand,
		DifferentiateTurns: cfg.Line.DifferentiateTurns,
		TurnDistance:       cfg.Wall.TurnDistance,
		ProximityThreshold: cfg.Wall.ProximityThreshold,
		ReverseMs:          cfg.Wall.ReverseMs,
		MockHardware:       cfg.Defaults.MockHardware,
	}
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	RunLoop     RunLoopFunc
	State       StateFunc
	Settings    Settings
	RunCooldown time.Duration

	runningMu sync.Mutex
	running   bool
	cancel    context.CancelFunc
	lastEnd   time.Time
	staticFS  fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If runLoop is nil, POST /run will return 503 Service Unavailable.
// If state is nil, GET /state will return 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, runLoop RunLoopFunc, state StateFunc, settings Settings, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		RunLoop:     runLoop,
		State:       state,
		Settings:    settings,
		RunCooldown: DefaultRunCooldown,
		staticFS:    staticFS,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HandleConfig returns the calibration settings as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Settings)
}

// HandleState returns the last tick state as JSON.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	if h.State == nil {
		http.Error(w, "loop not configured", http.StatusServiceUnavailable)
		return
	}
	h.runningMu.Lock()
	running := h.running
	h.runningMu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Running bool       `json:"running"`
		State   loop.State `json:"state"`
	}{running, h.State()})
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleRun handles POST /run to start the control loop.
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := ValidateRunRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.RunLoop == nil {
		http.Error(w, "control loop not configured", http.StatusServiceUnavailable)
		return
	}

	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		http.Error(w, "control loop already running", http.StatusConflict)
		return
	}
	if !h.lastEnd.IsZero() && time.Since(h.lastEnd) < h.RunCooldown {
		h.runningMu.Unlock()
		http.Error(w, "too many requests, wait before starting again", http.StatusTooManyRequests)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.running = true
	h.cancel = cancel
	h.runningMu.Unlock()

	// Run in goroutine; clear running when done
	go func() {
		defer func() {
			cancel()
			h.runningMu.Lock()
			h.running = false
			h.cancel = nil
			h.lastEnd = time.Now()
			h.runningMu.Unlock()
		}()

		h.Broadcaster.BroadcastMsg(fmt.Sprintf("Control loop starting (mode=%q ticks=%d)", req.Mode, req.Ticks))
		err := h.RunLoop(ctx, req)
		switch {
		case err == nil:
			h.Broadcaster.BroadcastMsg("Control loop finished")
		case errors.Is(err, context.Canceled):
			h.Broadcaster.BroadcastMsg("Control loop stopped")
		default:
			h.Broadcaster.Broadcast("error", "Control loop failed: "+err.Error())
			debug.Error(err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// HandleStop handles POST /stop. The running tick completes before the
// loop exits and brakes.
func (h *Handlers) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.runningMu.Lock()
	cancel := h.cancel
	h.runningMu.Unlock()

	if cancel == nil {
		http.Error(w, "control loop not running", http.StatusConflict)
		return
	}
	cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

// StopAll cancels a running loop, if any. Used on server shutdown.
func (h *Handlers) StopAll() {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()
	if h.cancel != nil {
		h.cancel()
	}
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
