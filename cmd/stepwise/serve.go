package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/florelab/stepwise/internal/config"
	"github.com/florelab/stepwise/internal/engine"
	"github.com/florelab/stepwise/internal/logging"
	"github.com/florelab/stepwise/pkg/adapters/file"
	"github.com/florelab/stepwise/pkg/adapters/httpapi"
	"github.com/florelab/stepwise/pkg/adapters/memory"
	redisadapter "github.com/florelab/stepwise/pkg/adapters/redis"
	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/flows/configurator"
	"github.com/florelab/stepwise/pkg/observability"
	"github.com/florelab/stepwise/pkg/persist"
	"github.com/florelab/stepwise/pkg/ports"
	"github.com/florelab/stepwise/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wizard HTTP server",
	Long:  `Starts the session-based HTTP API: REST navigation, step graph inspection, and per-session SSE state streams.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		logger := logging.New(cfg.LogLevel)

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Addr
		}

		verifier := demoVerifier()
		reg, err := buildRegistry(cmd, cfg, verifier)
		if err != nil {
			fmt.Printf("Error loading flow: %v\n", err)
			os.Exit(1)
		}

		var store ports.AnswerStore
		var cache ports.FastCache
		var locker ports.DistributedLocker
		if cfg.RedisURL != "" {
			redisOpts, err := backend.ParseURL(cfg.RedisURL)
			if err != nil {
				fmt.Printf("Error parsing Redis URL: %v\n", err)
				os.Exit(1)
			}
			client := backend.NewClient(redisOpts)
			store = redisadapter.NewFromClient(client, redisadapter.WithTTL(30*24*time.Hour))
			cache = redisadapter.NewCache(client, "stepwise:hot:", 30*24*time.Hour)
			locker = redisadapter.NewLocker(client, "stepwise:lock:")
			logger.Info("using redis persistence", "addr", redisOpts.Addr)
		} else {
			store = file.New(dataDir(cmd, cfg))
			logger.Info("using file persistence")
		}

		promReg := prometheus.NewRegistry()
		metrics := observability.NewMetrics(promReg)

		factory := func(sessionID string) (*engine.Wizard, error) {
			bridgeOpts := []persist.Option{persist.WithLogger(logger)}
			if cache != nil {
				bridgeOpts = append(bridgeOpts, persist.WithFastCache(cache, configurator.HotFields...))
			}
			return engine.New(reg, sessionID,
				engine.WithLogger(logger),
				engine.WithHooks(metrics.Hooks(domain.LifecycleHooks{})),
				engine.WithBridge(persist.New(store, bridgeOpts...)),
				engine.WithJumpEnabled(cfg.DebugJump),
			)
		}

		sessionOpts := []session.Option{session.WithLogger(logger)}
		if locker != nil {
			sessionOpts = append(sessionOpts, session.WithLocker(locker))
		}
		sessions := session.NewManager(factory, sessionOpts...)

		server := httpapi.NewServer(sessions, reg,
			httpapi.WithSink(memory.NewSink(), func() any { return &configurator.Record{} }),
			httpapi.WithMetricsHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})),
			httpapi.WithLogger(logger),
		)

		srv := &http.Server{
			Addr:    addr,
			Handler: server.Handler(),
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting Stepwise server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Stepwise server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (default :8080 or STEPWISE_ADDR)")
}
