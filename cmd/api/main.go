package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Veysel440/go-etracker/internal/config"
	"github.com/Veysel440/go-etracker/internal/httpx"
	"github.com/Veysel440/go-etracker/internal/repo/memory"
	"github.com/Veysel440/go-etracker/internal/repo/mongo"
	"github.com/Veysel440/go-etracker/internal/service"
)

func main() {
	configPath := flag.String("config", os.Getenv("ETRACKER_CONFIG"), "path to YAML config file")
	check := flag.Bool("check", false, "test the storage connection and exit")
	flag.Parse()

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger, *check); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

type storage struct {
	inv   service.InventoryRepo
	audit service.AuditRepo
	ping  func(context.Context) error
	close func(context.Context) error
	ns    string
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.Store == config.StoreMemory {
		inv := memory.NewInventoryRepo()
		if cfg.SeedFile != "" {
			var err error
			if inv, err = memory.LoadInventoryFile(cfg.SeedFile); err != nil {
				return nil, err
			}
		}
		return &storage{
			inv: inv, audit: memory.NewAuditRepo(),
			close: func(context.Context) error { return nil },
			ns:    "memory",
		}, nil
	}

	st, err := mongo.New(ctx, mongo.Config{
		URI:                cfg.MongoURI,
		DB:                 cfg.MongoDatabase,
		Collection:         cfg.MongoCollection,
		AuditCollection:    cfg.AuditCollection,
		AuditRetentionDays: int64(cfg.AuditRetentionDays),
		EnsureIndexes:      cfg.EnsureIndexes,
	})
	if err != nil {
		return nil, err
	}
	return &storage{inv: st.Inventory, audit: st.Audit, ping: st.Ping, close: st.Close, ns: st.Namespace()}, nil
}

func run(cfg *config.Config, logger *slog.Logger, check bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	st, err := openStorage(ctx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = st.close(ctx)
	}()

	if check {
		if st.ping != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := st.ping(ctx); err != nil {
				return fmt.Errorf("connection check failed: %w", err)
			}
		}
		fmt.Println("ok", st.ns)
		return nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := service.NewMetrics()
	if err := m.Register(reg); err != nil {
		return err
	}

	h, err := httpx.NewRouter(httpx.Deps{
		Engine: service.NewEngine(st.inv, st.audit, service.EngineConfig{
			DefaultExceptionDays: cfg.DefaultExceptionDurationDays,
		}, logger, m),
		Reports:            service.NewReports(st.inv, service.ReportsConfig{BatchSize: cfg.ReportBatchSize}, logger, m),
		Inventory:          service.NewInventory(st.inv, st.audit),
		Logger:             logger,
		Registry:           reg,
		Ping:               st.ping,
		APIKeys:            cfg.APIKeys,
		RatePerMinute:      cfg.RatePerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		ExpiringWindowDays: cfg.ReportExpiringWindowDays,
		UnenforcedLimit:    cfg.ReportUnenforcedLimit,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http_start", "addr", srv.Addr, "store", cfg.Store, "ns", st.ns)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_error", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("http_shutdown")
	return nil
}
