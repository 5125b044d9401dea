/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the canteen payment server: config, store,
  engine, realtime hub, router, graceful shutdown.

STARTUP SEQUENCE:
  1. Load env config (.env honored) and build the logger
  2. Parse command-line flags (override env)
  3. Open the SQLite store
  4. Wire engine + hub + handler + router
  5. Start server; drain on SIGINT/SIGTERM

FLAGS:
  -port  HTTP server port (overrides PORT)
  -db    SQLite database path (overrides DB_PATH; ":memory:" works)

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lunchbox/canteen-core/api"
	"github.com/lunchbox/canteen-core/config"
	"github.com/lunchbox/canteen-core/core"
	"github.com/lunchbox/canteen-core/realtime"
	"github.com/lunchbox/canteen-core/store/sqlite"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	st, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer st.Close()

	hub := realtime.NewHub(log)

	engine := core.NewEngine(st, hub, log)
	engine.AdminPIN = cfg.AdminPIN

	handler := api.NewHandler(engine)
	router := api.NewRouter(handler, hub)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}
	log.Info("server stopped")
}
