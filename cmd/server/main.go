package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/auxroom/auxroom/internal/api"
	"github.com/auxroom/auxroom/internal/config"
	"github.com/auxroom/auxroom/internal/database"
	"github.com/auxroom/auxroom/internal/server"
	"github.com/auxroom/auxroom/internal/stats"
	_ "github.com/lib/pq"
)

const defaultSigningKey = "Qm2ak5h3LDYyZFNkVUpPcUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[auxroom] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgAuxRoomRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.InitSchema(); err != nil {
		logger.Fatal("init schema:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	syncServer, err := server.NewSyncServer(logger, dbConn, statsUpdater, server.NewRealClock())
	if err != nil {
		logger.Fatal("new sync server:", err)
	}

	srv := api.NewAuxRoomApp(mux, logger, syncServer, dbConn, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go syncServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down sync server...")
	if err := syncServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("sync server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
