// pcqdemo pushes a stream of typed messages through a pcq queue and checks
// every one on the consumer side. Settings come from an optional TOML file
// and command line flags, which take precedence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/pcq"
	"github.com/wippyai/pcq/config"
	"github.com/wippyai/pcq/queue"
	"github.com/wippyai/pcq/region"
	"github.com/wippyai/pcq/shm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		messages    int
		payload     int
		interactive bool
	)
	cfg := config.Default()

	flagSet := pflag.NewFlagSet("pcqdemo", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	flagSet.IntVarP(&messages, "messages", "n", 100000, "number of messages to send")
	flagSet.IntVarP(&payload, "payload", "p", 64, "payload bytes per message")
	flagSet.BoolVarP(&interactive, "interactive", "i", false, "show a live view of the queue")
	flagSet.Int("capacity", cfg.Queue.Capacity, "ring capacity in bytes")
	flagSet.String("region", cfg.Queue.Region, "ring storage: heap, mmap or wasm")
	flagSet.Int("shm-threshold", cfg.Queue.ShmThreshold, "promote runs of at least this many bytes to shared memory (0 disables)")
	flagSet.String("shm-backend", cfg.Queue.ShmBackend, "segment backend: heap or memfd")
	flagSet.String("log-level", cfg.Log.Level, "log level")
	flagSet.String("log-output", cfg.Log.Output, "log sink: stderr, stdout or a file")
	flagSet.Bool("dev", cfg.Log.Development, "human readable logs")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	applyFlags(flagSet, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if messages < 0 || payload < 0 {
		return fmt.Errorf("messages and payload must not be negative")
	}

	interactive = interactive && term.IsTerminal(int(os.Stdout.Fd()))
	log, err := buildLogger(cfg, interactive)
	if err != nil {
		return err
	}
	defer log.Sync()
	installLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d, err := newDemo(ctx, cfg, messages, payload, log)
	if err != nil {
		return err
	}
	defer d.Close()

	if interactive {
		return runInteractive(ctx, d)
	}

	start := time.Now()
	if err := d.Run(ctx); err != nil {
		return err
	}
	report(d, time.Since(start))
	return nil
}

// applyFlags copies every flag the user set over cfg.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("capacity") {
		cfg.Queue.Capacity, _ = fs.GetInt("capacity")
	}
	if fs.Changed("region") {
		cfg.Queue.Region, _ = fs.GetString("region")
	}
	if fs.Changed("shm-threshold") {
		cfg.Queue.ShmThreshold, _ = fs.GetInt("shm-threshold")
	}
	if fs.Changed("shm-backend") {
		cfg.Queue.ShmBackend, _ = fs.GetString("shm-backend")
	}
	if fs.Changed("log-level") {
		cfg.Log.Level, _ = fs.GetString("log-level")
	}
	if fs.Changed("log-output") {
		cfg.Log.Output, _ = fs.GetString("log-output")
	}
	if fs.Changed("dev") {
		cfg.Log.Development, _ = fs.GetBool("dev")
	}
}

// buildLogger discards logs in interactive mode unless they go to a file.
func buildLogger(cfg config.Config, interactive bool) (*zap.Logger, error) {
	if interactive && (cfg.Log.Output == "stderr" || cfg.Log.Output == "stdout") {
		return zap.NewNop(), nil
	}
	return cfg.Log.Build()
}

func installLogger(log *zap.Logger) {
	pcq.SetLogger(log.Named("pcq"))
	queue.SetLogger(log.Named("queue"))
	shm.SetLogger(log.Named("shm"))
	region.SetLogger(log.Named("region"))
}

func report(d *demo, elapsed time.Duration) {
	st := d.queue.Stats()
	fmt.Printf("messages:   %d\n", st.Removed)
	fmt.Printf("elapsed:    %s\n", elapsed.Round(time.Microsecond))
	if secs := elapsed.Seconds(); secs > 0 {
		fmt.Printf("throughput: %.0f msg/s\n", float64(st.Removed)/secs)
	}
	fmt.Printf("retries:    %d\n", st.NotReady)
	if d.manager != nil {
		ss := d.manager.Stats()
		fmt.Printf("segments:   %d allocated, %d destroyed, %d live\n", ss.Allocated, ss.Destroyed, ss.Live)
	}
}
