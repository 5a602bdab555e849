// Package config loads queue and logging settings from TOML.
package config

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/wippyai/pcq/errors"
	"github.com/wippyai/pcq/region"
	"github.com/wippyai/pcq/shm"
)

// Config is the root of a configuration file.
type Config struct {
	Queue Queue `toml:"queue"`
	Log   Log   `toml:"log"`
}

// Queue configures the ring and its shared memory promotion.
type Queue struct {
	Capacity int    `toml:"capacity"`
	Region   string `toml:"region"`
	// ShmThreshold is the smallest run moved through a segment. Zero
	// disables promotion.
	ShmThreshold   int    `toml:"shm_threshold"`
	ShmBackend     string `toml:"shm_backend"`
	BackoffInitial string `toml:"backoff_initial"`
	BackoffMax     string `toml:"backoff_max"`
}

// Log configures the process logger.
type Log struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
	// Output is a zap sink: stderr, stdout or a file path.
	Output string `toml:"output"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Queue: Queue{
			Capacity:       64 << 10,
			Region:         string(region.KindHeap),
			ShmThreshold:   0,
			ShmBackend:     "heap",
			BackoffInitial: "1us",
			BackoffMax:     "1ms",
		},
		Log: Log{
			Level:  "info",
			Output: "stderr",
		},
	}
}

// Load reads path over the defaults and validates the result. Keys the
// file sets that no field takes are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode "+path)
	}
	return finish(cfg, meta)
}

// Parse is Load for an in-memory document.
func Parse(data string) (Config, error) {
	cfg := Default()
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode config")
	}
	return finish(cfg, meta)
}

func finish(cfg Config, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(keys...).
			Detail("unknown keys").
			Build()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and names.
func (c Config) Validate() error {
	q := c.Queue
	if q.Capacity < 2 {
		return invalid("queue.capacity", "must be at least 2, got %d", q.Capacity)
	}
	if _, err := region.ParseKind(q.Region); err != nil {
		return invalid("queue.region", "unknown region %q", q.Region)
	}
	if q.ShmThreshold != 0 && q.ShmThreshold < shm.MinThreshold {
		return invalid("queue.shm_threshold", "must be 0 or at least %d, got %d", shm.MinThreshold, q.ShmThreshold)
	}
	switch strings.ToLower(q.ShmBackend) {
	case "heap", "memfd":
	default:
		return invalid("queue.shm_backend", "unknown backend %q", q.ShmBackend)
	}
	if _, _, err := q.Backoff(); err != nil {
		return err
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return invalid("log.level", "unknown level %q", c.Log.Level)
	}
	return nil
}

// RegionKind returns the parsed region kind.
func (q Queue) RegionKind() region.Kind {
	k, _ := region.ParseKind(q.Region)
	return k
}

// SharedMemoryBackend returns the configured segment backend.
func (q Queue) SharedMemoryBackend() shm.Backend {
	if strings.EqualFold(q.ShmBackend, "memfd") {
		return shm.MemfdBackend()
	}
	return shm.HeapBackend()
}

// Backoff returns the parsed retry delays.
func (q Queue) Backoff() (initial, maximum time.Duration, err error) {
	initial, err = time.ParseDuration(strings.TrimSpace(q.BackoffInitial))
	if err != nil {
		return 0, 0, invalid("queue.backoff_initial", "%v", err)
	}
	maximum, err = time.ParseDuration(strings.TrimSpace(q.BackoffMax))
	if err != nil {
		return 0, 0, invalid("queue.backoff_max", "%v", err)
	}
	if maximum < initial {
		return 0, 0, invalid("queue.backoff_max", "%s is below backoff_initial %s", maximum, initial)
	}
	return initial, maximum, nil
}

// Build constructs the logger: JSON at the configured level, or a
// console logger in development mode.
func (l Log) Build() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.Level)
	if err != nil {
		return nil, invalid("log.level", "unknown level %q", l.Level)
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	if l.Output != "" {
		zc.OutputPaths = []string{l.Output}
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "build logger")
	}
	return logger, nil
}

func invalid(key, format string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path(key).
		Detail(format, args...).
		Build()
}
