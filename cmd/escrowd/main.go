package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/zapit-io/p2p-evmContract/config"
	"github.com/zapit-io/p2p-evmContract/core/events"
	"github.com/zapit-io/p2p-evmContract/crypto"
	"github.com/zapit-io/p2p-evmContract/dispatch"
	"github.com/zapit-io/p2p-evmContract/native/admin"
	"github.com/zapit-io/p2p-evmContract/native/escrow"
	"github.com/zapit-io/p2p-evmContract/observability/logging"
	"github.com/zapit-io/p2p-evmContract/rpc"
	"github.com/zapit-io/p2p-evmContract/state"
	"github.com/zapit-io/p2p-evmContract/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("escrowd", cfg.Environment, &logging.Options{
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	st := state.NewManager(db)
	collector := events.NewCollector()

	escrowEngine := escrow.NewEngine()
	escrowEngine.SetState(st)
	escrowEngine.SetEmitter(collector)
	adminEngine := admin.NewEngine(st)

	modules := []dispatch.Module{
		escrow.NewNativeModule(escrowEngine),
		escrow.NewTokenModule(escrowEngine),
		admin.NewModule(adminEngine),
	}
	dispatcher := dispatch.New(st, collector, modules...)

	owner, err := crypto.DecodeAddress(strings.TrimSpace(cfg.Genesis.Owner))
	if err != nil {
		logger.Error("Invalid genesis owner", slog.Any("error", err))
		os.Exit(1)
	}
	if err := dispatcher.Bootstrap(owner.Bytes()); err != nil {
		logger.Error("Bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := seedRoutes(dispatcher, st, owner.Bytes(), cfg, modules); err != nil {
		logger.Error("Genesis upgrade failed", slog.Any("error", err))
		os.Exit(1)
	}

	server := rpc.NewServer(logger, dispatcher, st)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", slog.String("address", cfg.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
}

// seedRoutes binds the module operations and runs the one-shot market
// initialization. The init operation stays unrouted: it is reachable only
// through the upgrade's guarded init call. A node restarting over an existing
// data directory skips the whole step.
func seedRoutes(dispatcher *dispatch.Dispatcher, st *state.Manager, owner [20]byte, cfg *config.Config, modules []dispatch.Module) error {
	done, err := st.InitializationDone()
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	cuts := make([]dispatch.Cut, 0, len(modules))
	for _, module := range modules {
		operations := make([]string, 0, len(module.Handlers()))
		for op := range module.Handlers() {
			if op == admin.OpInit {
				continue
			}
			operations = append(operations, op)
		}
		sort.Strings(operations)
		cuts = append(cuts, dispatch.Cut{
			Module:     module.Name(),
			Action:     dispatch.CutAdd,
			Operations: operations,
		})
	}

	arbitrator := strings.TrimSpace(cfg.Genesis.Arbitrator)
	feeAddress := strings.TrimSpace(cfg.Genesis.FeeAddress)
	if feeAddress == "" {
		feeAddress = crypto.NewAddress(owner).String()
	}
	initParams, err := json.Marshal(map[string]interface{}{
		"feeAddress": feeAddress,
		"feeBps":     cfg.Genesis.FeeBps,
		"arbitrator": arbitrator,
	})
	if err != nil {
		return err
	}
	init := &dispatch.InitCall{
		Module:    admin.ModuleName,
		Operation: admin.OpInit,
		Params:    initParams,
	}
	if err := dispatcher.Upgrade(owner, cuts, init); err != nil {
		return err
	}

	for _, asset := range cfg.Genesis.WhitelistedAssets {
		params, err := json.Marshal(map[string]interface{}{"asset": asset, "allowed": true})
		if err != nil {
			return err
		}
		_, _, err = dispatcher.Invoke(admin.OpSetWhitelistedAsset, &dispatch.Call{
			Caller: owner,
			Params: params,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
