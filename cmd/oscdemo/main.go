// Command oscdemo sends synthetic hand tracking messages so OSC receivers
// can be tested without NDI or a camera.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/broadcast"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/demo"
	"github.com/ayusman/mudra/internal/logging"
)

func main() {
	ip := pflag.String("osc-ip", broadcast.DefaultHost, "OSC destination address")
	port := pflag.Int("osc-port", broadcast.DefaultPort, "OSC destination port")
	duration := pflag.Duration("duration", 10*time.Second, "how long to send")
	fps := pflag.Int("fps", demo.DefaultFPS, "frames per second")
	pflag.Parse()

	log, err := logging.New(config.LogConfig{Level: "info", Mode: "debug"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "oscdemo: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	b, err := broadcast.Dial(*ip, *port, log.Named("osc"))
	if err != nil {
		log.Fatal("failed to open OSC socket", zap.Error(err))
	}
	defer b.Close()

	log.Info("sending demo hand messages",
		zap.String("target", b.Target()),
		zap.Duration("duration", *duration),
		zap.Strings("addresses", []string{
			"/hand/{id}/position",
			"/hand/{id}/pinch_length",
			"/hand/{id}/pinch_angle",
			"/hand/{id}/is_pinching",
		}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	frames := demo.Run(ctx, b, *duration, *fps, log)
	elapsed := time.Since(start)

	stats := b.Stats()
	log.Info("demo finished",
		zap.Int("frames", frames),
		zap.Duration("elapsed", elapsed.Round(100*time.Millisecond)),
		zap.Float64("fps", float64(frames)/elapsed.Seconds()),
		zap.Uint64("sent", stats.Sent),
		zap.Uint64("failed", stats.Failed))
}
