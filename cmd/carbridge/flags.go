package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dashlink/carbridge/internal/config"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

type cliConfig struct {
	logLevel       string
	pairTimeout    time.Duration
	writerDrain    time.Duration
	preferHardware bool
	width          uint
	height         uint
	fps            uint
	dpi            uint
	showVersion    bool
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("carbridge", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.DurationVar(&cfg.pairTimeout, "pair-timeout", 15*time.Second, "Time to wait for media after pairing before requesting a wifi re-pair")
	fs.DurationVar(&cfg.writerDrain, "writer-drain", 200*time.Millisecond, "Grace period to drain in-flight USB writes before force-closing on shutdown")
	fs.BoolVar(&cfg.preferHardware, "prefer-hardware", true, "Prefer a hardware-accelerated renderer when available")
	fs.UintVar(&cfg.width, "width", 1280, "Requested video width pushed to the dongle")
	fs.UintVar(&cfg.height, "height", 720, "Requested video height pushed to the dongle")
	fs.UintVar(&cfg.fps, "fps", 30, "Requested frame rate pushed to the dongle")
	fs.UintVar(&cfg.dpi, "dpi", 160, "Requested DPI pushed to the dongle")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}
	if cfg.width == 0 || cfg.height == 0 {
		return nil, errors.New("width and height must be positive")
	}
	return cfg, nil
}

// toConfig translates the parsed CLI flags into the runtime Config.
func (c *cliConfig) toConfig() config.Config {
	dongle := config.DefaultDongleConfig()
	dongle.Width = uint32(c.width)
	dongle.Height = uint32(c.height)
	dongle.FPS = uint32(c.fps)
	dongle.DPI = uint32(c.dpi)

	return config.Config{
		LogLevel:       c.logLevel,
		PairTimeout:    c.pairTimeout,
		WriterDrain:    c.writerDrain,
		PreferHardware: c.preferHardware,
		Dongle:         dongle,
	}
}
