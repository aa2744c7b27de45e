package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"starreign.ai/internal/agent/decision"
	"starreign.ai/internal/agent/llm"
	"starreign.ai/internal/agent/ratelimit"
	"starreign.ai/internal/agent/rules"
	persistlog "starreign.ai/internal/persistence/log"
	"starreign.ai/internal/sim/tuning"
	"starreign.ai/internal/sim/turn"
	"starreign.ai/internal/transport/natsbus"
	"starreign.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory (turn and audit logs)")
		dbPath     = flag.String("db", "", "sqlite database path (default: <data>/starreign.sqlite; \"memory\" keeps state in process)")
		natsURL    = flag.String("nats_url", "", "publish turn reports to this NATS server (empty to disable)")
		ipRate     = flag.Float64("ip_rate", 5, "per-client request rate limit (requests/second, 0 to disable)")
		ipBurst    = flag.Int("ip_burst", 20, "per-client burst")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).With("component", "server")

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fatal(logger, "load tuning", err)
		}
		logger.Warn("tuning not found; using defaults", "path", tp)
		tune = tuning.Defaults()
	}

	_ = os.MkdirAll(*dataDir, 0o755)
	st, err := openStore(*dbPath, *dataDir, logger)
	if err != nil {
		fatal(logger, "open store", err)
	}
	defer st.Close()

	ruleEngine, err := rules.NewEngine(rules.DefaultRules(), logger.With("component", "rules"))
	if err != nil {
		fatal(logger, "compile rules", err)
	}
	chain, err := llm.FromConfig(tune.Agents.Providers, logger.With("component", "llm"))
	if err != nil {
		fatal(logger, "providers", err)
	}
	var completer decision.Completer
	if chain.Len() > 0 {
		completer = chain
	}
	pipeline := decision.New(tune, ruleEngine, completer, ratelimit.NewGovernor(tune.Agents.Limits), logger.With("component", "decision"))

	turnLog := persistlog.NewTurnLogger(*dataDir)
	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer turnLog.Close()
	defer auditLog.Close()

	engine := turn.New(turn.Options{
		Store:   st,
		Tuning:  tune,
		Decider: pipeline,
		Turns:   turnLog,
		Audit:   auditLog,
		Logger:  logger.With("component", "turn"),
	})

	hub := ws.NewHub(st, logger.With("component", "ws"))
	engine.AddPublisher(hub)

	if u := strings.TrimSpace(*natsURL); u != "" {
		bus, err := natsbus.Connect(u, logger.With("component", "nats"))
		if err != nil {
			fatal(logger, "nats", err)
		}
		defer bus.Close()
		engine.AddPublisher(bus)
	}

	ctx, cancel := signalContext()
	defer cancel()

	api := &api{engine: engine, log: logger}
	limiter := newIPLimiter(*ipRate, *ipBurst, 10*time.Minute)
	go limiter.sweepEvery(ctx, time.Minute)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           limiter.middleware(api.routes(hub)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening", "addr", *addr, "providers", chain.Len(), "nats", *natsURL != "")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fatal(logger, "ListenAndServe", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
