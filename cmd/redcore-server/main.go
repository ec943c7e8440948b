package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"redcore/internal/config"
	"redcore/internal/dispatch"
	"redcore/internal/engine"
	"redcore/internal/listener"
	"redcore/internal/logging"
	"redcore/internal/metrics"
)

func main() {
	host := flag.String("host", "0.0.0.0", "address to bind to")
	port := flag.Int("port", 6379, "port to listen on")
	maxMemory := flag.Int64("maxmemory", 0, "maxmemory in bytes, 0 = unbounded")
	maxMemoryPolicy := flag.String("maxmemory-policy", "noeviction", "eviction policy")
	ioThreads := flag.Int("io-threads", 0, "I/O worker count, 0 = auto")
	development := flag.Bool("dev", false, "use the development logging profile")
	flag.Parse()

	log, err := logging.New(*development)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.DefaultConfig()
	cfg.Host = *host
	cfg.Port = *port
	cfg.MaxMemory = *maxMemory
	cfg.MaxMemoryPolicy = parsePolicy(*maxMemoryPolicy)
	cfg.IOThreads = *ioThreads

	reg := metrics.New()
	eng := engine.New(cfg, reg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	ioWorkers := cfg.IOThreads
	if ioWorkers == 0 {
		ioWorkers = runtime.NumCPU() - 1
		if ioWorkers < 2 {
			ioWorkers = 2
		}
	}
	d := dispatch.New(ioWorkers, 1, 0, eng.Execute, reg, log)
	d.Start(ctx)

	ln := listener.New(cfg, eng, d, log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infow("shutting down")
		cancel()
		d.Shutdown()
		eng.Shutdown()
	}()

	log.Infow("redcore starting", "host", cfg.Host, "port", cfg.Port)
	if err := ln.Serve(ctx); err != nil {
		log.Errorw("listener exited", "err", err)
		os.Exit(1)
	}
}

func parsePolicy(s string) config.MaxMemoryPolicy {
	switch s {
	case "allkeys-lru":
		return config.AllKeysLRU
	case "volatile-lru":
		return config.VolatileLRU
	case "allkeys-lfu":
		return config.AllKeysLFU
	case "volatile-lfu":
		return config.VolatileLFU
	case "allkeys-random":
		return config.AllKeysRandom
	case "volatile-random":
		return config.VolatileRandom
	case "volatile-ttl":
		return config.VolatileTTL
	default:
		return config.NoEviction
	}
}
