package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/cjeanneret/RoverGo/internal/config"
	"github.com/cjeanneret/RoverGo/internal/debug"
	"github.com/cjeanneret/RoverGo/internal/hw"
	"github.com/cjeanneret/RoverGo/internal/hw/adc"
	"github.com/cjeanneret/RoverGo/internal/logic/loop"
	"github.com/cjeanneret/RoverGo/internal/logic/ranging"
	"github.com/cjeanneret/RoverGo/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file (configs/*.yaml)")
	mode := flag.String("mode", "", "override control mode (line or wall)")
	ticks := flag.Int("ticks", 0, "stop after this many ticks (0 = config tick_limit)")
	mock := flag.Bool("mock", false, "force mock hardware")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Validate CLI overrides (zero values mean "use config default")
	req := web.RunRequest{Mode: *mode, Ticks: *ticks}
	if err := validateCLIOverrides(req); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, req)
	if *mock {
		cfg.Defaults.MockHardware = true
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Mode", cfg.Mode)
	debug.Value("Mock hardware", cfg.Defaults.MockHardware)

	if err := run(ctx, cfg, webPort.port()); err != nil {
		log.Fatalf("rover: %v", err)
	}
}

// run opens the hardware and either serves the web interface or runs the
// control loop once with the current configuration.
func run(ctx context.Context, cfg *config.Config, port int) error {
	debug.Step(1, "Opening hardware")
	h, err := hw.Open(cfg)
	if err != nil {
		return fmt.Errorf("open hardware: %w", err)
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			log.Printf("closing hardware failed: %v", cerr)
		}
	}()
	debug.PrintStruct("Left motor", cfg.Motors.Left)
	debug.PrintStruct("Right motor", cfg.Motors.Right)

	var current atomic.Pointer[loop.Loop]
	var opts []loop.Option
	var broadcaster *web.StatusBroadcaster
	if port > 0 {
		broadcaster = web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
		opts = append(opts,
			loop.WithSink(broadcaster.Telemetry),
			loop.WithTickHook(func(st loop.State) { broadcaster.BroadcastState(st) }),
		)
	}

	runLoop := func(ctx context.Context, req web.RunRequest) error {
		return executeLoop(ctx, cfg, h, req, &current, opts...)
	}

	if port > 0 {
		state := func() loop.State {
			if l := current.Load(); l != nil {
				return l.State()
			}
			return loop.State{Mode: cfg.Mode}
		}
		srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, runLoop, state, web.SettingsFromConfig(cfg))
		return srv.Run(ctx)
	}

	err = runLoop(ctx, web.RunRequest{})
	if errors.Is(err, context.Canceled) {
		debug.Info("Interrupted, motors braked")
		return nil
	}
	return err
}

// executeLoop builds a loop for a copy of the base config with the
// request applied and runs it until ctx ends or the tick limit is reached.
func executeLoop(
	ctx context.Context,
	baseCfg *config.Config,
	h *hw.Handle,
	req web.RunRequest,
	current *atomic.Pointer[loop.Loop],
	opts ...loop.Option,
) error {
	cfg := applyOverridesToCopy(baseCfg, req)
	if h.MockADC != nil {
		// Scripts follow the mode of this run, not the configured one.
		seedBenchReadings(h.MockADC, cfg)
	}

	debug.Step(2, "Building control loop")
	l, err := loop.New(cfg, h, opts...)
	if err != nil {
		return err
	}
	if current != nil {
		current.Store(l)
	}

	debug.Summary(fmt.Sprintf("Running %s mode", cfg.Mode))
	return l.Run(ctx, cfg.Defaults.TickLimit)
}

// seedBenchReadings scripts the mock converter with plausible readings so
// a bench run without sensors exercises both control laws.
func seedBenchReadings(m *adc.MockReader, cfg *config.Config) {
	r := ranging.NewCalculator(cfg)
	s := cfg.Sensors
	switch cfg.Mode {
	case config.ModeWall:
		// 1.5 V is about 18 cm: forward bias, proximity clear.
		m.Set(adc.Channel(s.Distance), r.SampleFor(1.45), r.SampleFor(1.55))
		m.Set(adc.Channel(s.Proximity), 850, 900)
	default:
		// Right brighter than left by more than the dead band.
		m.Set(adc.Channel(s.Left), 495, 505)
		m.Set(adc.Channel(s.Center), 700)
		m.Set(adc.Channel(s.Right), 560, 570)
	}
	debug.Info("Mock ADC seeded with bench readings for %s mode", cfg.Mode)
}

// validateCLIOverrides checks the mode and tick overrides.
// Zero values are ignored (they mean "use config default").
func validateCLIOverrides(req web.RunRequest) error {
	return web.ValidateRunRequest(req)
}

// applyOverrides mutates cfg with overrides. Only non-zero override values are applied.
func applyOverrides(cfg *config.Config, req web.RunRequest) {
	if req.Mode != "" {
		cfg.Mode = req.Mode
	}
	if req.Ticks > 0 {
		cfg.Defaults.TickLimit = req.Ticks
	}
}

// applyOverridesToCopy returns a new config with overrides applied.
// Zero values in req mean "use base config".
func applyOverridesToCopy(baseCfg *config.Config, req web.RunRequest) *config.Config {
	cfg := *baseCfg
	applyOverrides(&cfg, req)
	return &cfg
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
