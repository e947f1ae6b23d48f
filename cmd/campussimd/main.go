// Command campussimd runs the BASim campus simulator: it assembles a
// campus over a shared point registry, drives the fixed-step tick
// loop, and serves the Modbus/TCP, BACnet/IP, BACnet/SC and HTTP/JSON
// gateways concurrently, per spec.md §5.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"campussim/internal/bacnetapdu"
	"campussim/internal/bacnetip"
	"campussim/internal/bacnetsc"
	"campussim/internal/campus"
	"campussim/internal/clock"
	"campussim/internal/config"
	"campussim/internal/httpapi"
	"campussim/internal/modbusgw"
	"campussim/internal/registry"
	"campussim/internal/tick"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("campussimd: fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	reg := registry.New()
	c, err := campus.Assemble(cfg, reg, campus.ControllerProfile(cfg.ControllerProfile))
	if err != nil {
		return fmt.Errorf("assembling campus: %w", err)
	}

	clk := clock.New(time.Now(), cfg.SimulationSpeed)
	driver := tick.New(clk, c, reg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		driver.Run(ctx)
	}()

	httpSrv, err := httpapi.NewServer(cfg, reg, c, clk, driver, logger)
	if err != nil {
		return fmt.Errorf("building http gateway: %w", err)
	}
	httpListener := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: httpSrv.Handler(),
	}

	modbusSrv := modbusgw.New(reg, modbusgw.Build(reg), logger.With("gateway", "modbus"))
	bacnetDB := bacnetapdu.Build(reg)
	bacnetSrv := bacnetip.New(reg, bacnetDB, clk, cfg.DeviceID, logger.With("gateway", "bacnetip"))

	scHub := bacnetsc.NewHub(logger.With("gateway", "bacnetsc"))
	scHandler := bacnetsc.NewHandler(scHub, reg, bacnetDB, clk, uint32(cfg.DeviceID), logger.With("gateway", "bacnetsc"))
	scMux := http.NewServeMux()
	scMux.Handle("/bacnet-sc", scHandler)
	scListener := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.BACnetSCPort),
		Handler: scMux,
	}

	wg.Add(4)
	go runIsolated(&wg, logger, "http", func() error {
		err := httpListener.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	go runIsolated(&wg, logger, "modbus", func() error {
		return modbusSrv.ListenAndServe(fmt.Sprintf(":%d", cfg.ModbusPort))
	})
	go runIsolated(&wg, logger, "bacnetip", func() error {
		return bacnetSrv.ListenAndServe(fmt.Sprintf(":%d", cfg.BACnetPort))
	})
	go runIsolated(&wg, logger, "bacnetsc", func() error {
		err := scListener.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	logger.Info("campussimd: started",
		"campus_size", cfg.CampusSize,
		"http_port", cfg.HTTPPort,
		"modbus_port", cfg.ModbusPort,
		"bacnet_port", cfg.BACnetPort,
		"bacnet_sc_port", cfg.BACnetSCPort,
	)

	<-ctx.Done()
	logger.Info("campussimd: shutdown signal received, draining gateways")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	_ = httpListener.Shutdown(shutdownCtx)
	_ = scListener.Shutdown(shutdownCtx)
	_ = modbusSrv.Close()
	_ = bacnetSrv.Close()

	wg.Wait()
	logger.Info("campussimd: stopped", "ticks", driver.Ticks())
	return nil
}

// runIsolated runs one protocol gateway and recovers a panic inside it
// so a bug in one server can never take down the tick loop or the
// other gateways (spec.md §7).
func runIsolated(wg *sync.WaitGroup, logger *slog.Logger, name string, fn func() error) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("campussimd: recovered panic in gateway", "gateway", name, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		logger.Error("campussimd: gateway exited", "gateway", name, "error", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
