package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dashlink/carbridge/internal/demux"
	"github.com/dashlink/carbridge/internal/logger"
	"github.com/dashlink/carbridge/internal/session"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	runtimeCfg := cfg.toConfig()
	demuxer := demux.New(log)
	driver := session.New(runtimeCfg, demuxer, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := driver.Start(ctx); err != nil {
		log.Error("failed to start session", "error", err)
		os.Exit(1)
	}
	pipe := buildPipeline(runtimeCfg, demuxer, driver, log)
	defer pipe.Close()
	log.Info("carbridge session started", "version", version)

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.writerDrain+3*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := driver.Stop(); err != nil {
			log.Error("session stop error", "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("session stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
	}
}
