// Command mudra tracks hands in an NDI stream, or a local camera when no
// NDI source is available, and broadcasts pinch features over OSC.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/broadcast"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/ndi"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/source"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

const windowTitle = "NDI Hand Tracking with OSC"

// The preview window and the tray both need the main OS thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := pflag.NewFlagSet("mudra", pflag.ExitOnError)
	config.RegisterFlags(flags)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: mudra [flags]")
		fmt.Fprintln(os.Stderr, "\nTracks hands in an NDI stream and broadcasts pinch features over OSC.")
		fmt.Fprintln(os.Stderr)
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		return 1
	}

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		return 1
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if list, _ := flags.GetBool("list-sources"); list {
		if err := listSources(ctx, cfg); err != nil {
			log.Error("NDI discovery failed", zap.Error(err))
			return 1
		}
		return 0
	}

	result, err := track(ctx, cfg, log)
	if err != nil {
		if errors.Is(err, source.ErrConnect) {
			log.Error("no video source available: start an NDI sender on the network or connect a camera",
				zap.Error(err))
		} else {
			log.Error("hand tracking failed", zap.Stringer("reason", result.Reason), zap.Error(err))
		}
		return 1
	}
	return 0
}

// listSources prints the NDI senders visible on the network.
func listSources(ctx context.Context, cfg *config.Config) error {
	finder := ndi.NewMDNSFinder(cfg.NDI.DiscoveryTimeout)
	sources, err := finder.Find(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("No NDI sources found")
		return nil
	}
	for i, s := range sources {
		fmt.Printf("%d. %s (%s:%d)\n", i+1, s.Name, s.Host, s.Port)
	}
	return nil
}

// track wires the components together and runs the frame loop.
func track(ctx context.Context, cfg *config.Config, log *zap.Logger) (app.Result, error) {
	log.Info("NDI hand tracking with OSC",
		zap.String("osc", cfg.OSCTarget()),
		zap.String("ndi_source", cfg.NDI.Source))

	osc, err := broadcast.Dial(cfg.OSC.IP, cfg.OSC.Port, log.Named("osc"))
	if err != nil {
		return app.Result{Reason: app.ReasonConnectFailed}, err
	}
	log.Info("OSC client initialized", zap.String("target", osc.Target()))

	det, err := newDetector(cfg, log)
	if err != nil {
		osc.Close()
		return app.Result{Reason: app.ReasonConnectFailed}, err
	}
	extractor := hand.NewExtractor(det, cfg.Detector.MaxHands, log.Named("hand"))

	var a *app.App
	quit := make(chan struct{})
	opts := []app.Option{
		app.WithBroadcasters(osc),
		app.WithClosers(extractor, osc),
		app.WithQuit(quit),
	}

	if cfg.Record.Path != "" {
		rec, st, err := newRecorder(cfg, log)
		if err != nil {
			extractor.Close()
			osc.Close()
			return app.Result{Reason: app.ReasonConnectFailed}, err
		}
		opts = append(opts,
			app.WithBroadcasters(rec),
			app.WithClosers(st, rec),
			app.WithOnConnect(func(src source.Source) {
				if err := rec.SetSource(src.Describe(), src.Mode().String()); err != nil {
					log.Warn("failed to record session source", zap.Error(err))
				}
			}))
	}

	var srv *server.Server
	if cfg.Monitor.Addr != "" {
		srv = server.New(server.Config{
			StaticDir: staticDir(cfg.Monitor.StaticDir),
			Status:    func() server.Status { return status(a) },
			Log:       log.Named("monitor"),
		})
		opts = append(opts,
			app.WithBroadcasters(srv),
			app.WithFrameSinks(srv),
			app.WithClosers(srv))
	}

	var t *tray.Tray
	switch {
	case cfg.Tray:
		t = tray.New()
		opts = append(opts,
			app.WithBroadcasters(t),
			app.WithOnConnect(func(src source.Source) { t.SetStatus(src.Describe()) }))
		if !cfg.Headless {
			log.Info("preview window disabled while the tray is shown")
		}
	case !cfg.Headless:
		opts = append(opts, app.WithDisplay(app.NewWindowDisplay(windowTitle)))
	}

	a = app.New(newSource(cfg, log), extractor, log.Named("app"), app.Config{
		MaxEmptyFrames: cfg.Loop.MaxEmptyFrames,
		LogEvery:       cfg.Loop.LogEvery,
		EmptyBackoff:   cfg.Loop.EmptyBackoff,
	}, opts...)

	if srv != nil {
		if err := srv.Start(cfg.Monitor.Addr); err != nil {
			log.Warn("monitor unavailable", zap.String("addr", cfg.Monitor.Addr), zap.Error(err))
		} else {
			log.Info("monitor listening", zap.String("addr", srv.Addr()))
		}
	}

	log.Info("press 'q' in the preview window or Ctrl+C to quit")

	if t == nil {
		return a.Run(ctx)
	}

	t.OnToggle(a.SetEnabled)
	t.OnQuit(func() { close(quit) })

	var (
		result app.Result
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, runErr = a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	<-done
	return result, runErr
}

// newSource builds the NDI source with a camera fallback. Either may be
// disabled by configuration.
func newSource(cfg *config.Config, log *zap.Logger) source.Source {
	var candidates []source.Source

	if !cfg.NDI.Disabled {
		bridge := cfg.NDI.Bridge
		if len(bridge) == 0 {
			if script := detector.FindScript("ndi_bridge.py"); script != "" {
				bridge = []string{pythonFor(cfg), script}
			}
		}
		receiver := ndi.NewReceiver(ndi.ReceiverConfig{
			Command:           bridge,
			FirstFrameTimeout: cfg.NDI.FirstFrameTimeout,
		}, log.Named("ndi"))
		candidates = append(candidates, source.NewNetwork(source.NetworkConfig{
			Name:             cfg.NDI.Source,
			DiscoveryTimeout: cfg.NDI.DiscoveryTimeout,
		}, ndi.NewMDNSFinder(cfg.NDI.DiscoveryTimeout), receiver, log.Named("ndi")))
	}

	if !cfg.Camera.Disabled {
		candidates = append(candidates, source.NewCamera(source.CameraConfig{
			Device:   cfg.Camera.Device,
			MaxProbe: cfg.Camera.MaxProbe,
			Mirror:   cfg.Camera.Mirror,
		}, nil, log.Named("camera")))
	}

	return source.NewFallback(log.Named("source"), candidates...)
}

// newDetector prepares MediaPipe, or the mock detector when detector.mock
// is set.
func newDetector(cfg *config.Config, log *zap.Logger) (detector.Detector, error) {
	if cfg.Detector.Mock {
		log.Warn("using mock detector, landmarks are synthetic")
		return detector.NewMockDetector(), nil
	}

	d, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		Script:          cfg.Detector.Script,
		Python:          cfg.Detector.Python,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (install scripts/mediapipe_service.py or set detector.mock: true)", err)
	}
	return d, nil
}

func newRecorder(cfg *config.Config, log *zap.Logger) (*store.Recorder, *store.Store, error) {
	if dir := filepath.Dir(cfg.Record.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create record directory: %w", err)
		}
	}

	st, err := store.New(cfg.Record.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	rec, err := store.NewRecorder(st, store.Session{
		Mode:      source.Disconnected.String(),
		OSCTarget: cfg.OSCTarget(),
	}, log.Named("record"))
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return rec, st, nil
}

func status(a *app.App) server.Status {
	if a == nil {
		return server.Status{}
	}
	src := a.Source()
	return server.Status{
		Source:  src.Describe(),
		Mode:    src.Mode().String(),
		Phase:   a.Phase().String(),
		Frames:  a.Frames(),
		Enabled: a.IsEnabled(),
	}
}

func pythonFor(cfg *config.Config) string {
	if cfg.Detector.Python != "" {
		return cfg.Detector.Python
	}
	return detector.FindPython()
}

// staticDir returns dir, or the first "web" directory found next to the
// working directory or under ~/.mudra.
func staticDir(dir string) string {
	if dir != "" {
		return dir
	}

	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
