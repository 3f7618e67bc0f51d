package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"

	"main/internal/bus"
	"main/internal/obs"
	"main/internal/oe"
	"main/internal/ops"
	"main/internal/pool"
	"main/internal/retry"
	"main/internal/router"
	"main/internal/schema"
	"main/internal/server"
	"main/internal/sink"
	"main/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	configReload := flag.Duration("config-reload-interval", 2*time.Second, "Config reload interval (0=disable)")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if cfg.Profiling.Enabled {
		stop, err := startProfiler(cfg.Profiling)
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := obs.NewMetrics()
	registry := sink.NewRegistry(metrics)

	rt, err := buildRouter(cfg.Router)
	if err != nil {
		log.Fatalf("router setup failed: %v", err)
	}

	mem := bus.NewQueue(cfg.Engine.QueueSize)
	defer mem.Close()
	var queue oe.JobQueue = mem
	var source pool.JobSource = mem
	var durable *store.DurableQueue
	if cfg.Storage.Enabled {
		db, err := store.Open(store.Option{
			Host:       cfg.Storage.Host,
			Port:       cfg.Storage.Port,
			User:       cfg.Storage.User,
			Password:   cfg.Storage.Password,
			Database:   cfg.Storage.Database,
			ConnString: cfg.Storage.ConnString,
		})
		if err != nil {
			log.Fatalf("storage open failed: %v", err)
		}
		durable = store.NewDurableQueue(mem, db)
		queue = durable
		source = durable
	}

	worker := oe.NewWorker(rt, registry, metrics, oe.WorkerConfig{
		RouteTimeout: cfg.Engine.RouteTimeout(),
		SwapTimeout:  cfg.Engine.SwapTimeout(),
		BuildDelay:   cfg.Engine.BuildDelay(),
	})
	svc := oe.NewService(queue, worker, registry, metrics, oe.ServiceConfig{
		MaxAttempts: cfg.Engine.MaxAttempts,
		Backoff: retry.Backoff{
			Base:   cfg.Engine.BackoffBase(),
			Max:    cfg.Engine.BackoffMax(),
			Jitter: 0.2,
		},
	})

	limiter := pool.NewWindowLimiter(cfg.Engine.RateLimit, cfg.Engine.RateWindow())
	dispatcher, err := pool.NewDispatcher(source, limiter, cfg.Engine.Concurrency, svc.Handle)
	if err != nil {
		log.Fatalf("dispatcher setup failed: %v", err)
	}

	srv, err := server.New(server.Config{
		Addr:    cfg.Server.Addr,
		Orders:  svc,
		Sink:    registry,
		Metrics: metrics,
	})
	if err != nil {
		log.Fatalf("server setup failed: %v", err)
	}

	if *configPath != "" && *configReload > 0 {
		go watchConfig(ctx, *configPath, *configReload, func(next ops.FileConfig) {
			limiter.Update(next.Engine.RateLimit, next.Engine.RateWindow())
		})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	// Recovery runs after the workers start pulling, so a backlog larger
	// than the queue buffer drains instead of wedging startup.
	if durable != nil {
		if recovered, err := durable.Recover(ctx); err != nil {
			log.Fatalf("journal recovery failed: %v", err)
		} else if recovered > 0 {
			log.Printf("re-enqueued %d unfinished order(s)", recovered)
		}
	}

	if err := srv.Start(ctx); err != nil {
		log.Printf("http server failed: %v", err)
		cancel()
	}
	wg.Wait()

	snapshot := metrics.Snapshot()
	log.Printf("shutdown: confirmed=%d failed=%d retries=%d queueDrops=%d sinkDrops=%d",
		snapshot.StatusCounts[schema.StatusConfirmed], snapshot.StatusCounts[schema.StatusFailed],
		snapshot.Retries, snapshot.QueueDrops, snapshot.SinkDrops)
}

func buildRouter(cfg ops.RouterConfig) (router.Router, error) {
	switch cfg.Mode {
	case ops.RouterModeLive:
		return router.NewLive(nil, router.LiveConfig{
			Endpoint: cfg.Endpoint,
			Wallet:   cfg.Wallet,
			FeeFloor: cfg.FeeFloor,
		}), nil
	default:
		sim := router.DefaultSimConfig()
		sim.Seed = cfg.Seed
		sim.QuoteFailRate = cfg.QuoteFailRate
		sim.SwapRejectRate = cfg.SwapRejectRate
		sim.SwapNetworkRate = cfg.SwapNetworkRate
		return router.NewSimulated(sim)
	}
}

func watchConfig(ctx context.Context, path string, interval time.Duration, update func(ops.FileConfig)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var lastMod time.Time
	if info, err := os.Stat(path); err == nil {
		lastMod = info.ModTime()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				log.Printf("config stat failed: %v", err)
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			next, err := ops.Load(path)
			if err != nil {
				log.Printf("config reload failed: %v", err)
				continue
			}
			update(next)
			lastMod = info.ModTime()
			log.Printf("config reloaded: %s", path)
		}
	}
}

type emptyLogger struct{}

func (emptyLogger) Infof(string, ...any)  {}
func (emptyLogger) Debugf(string, ...any) {}
func (emptyLogger) Errorf(string, ...any) {}

func startProfiler(cfg ops.ProfilingConfig) (func(), error) {
	appName := cfg.AppName
	if appName == "" {
		appName = "order-engine"
	}
	addr := cfg.ServerAddress
	if addr == "" {
		addr = "http://localhost:4040"
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   addr,
		Logger:          emptyLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = profiler.Stop() }, nil
}
