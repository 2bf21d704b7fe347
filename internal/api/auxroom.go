package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/auxroom/auxroom/internal/config"
	"github.com/auxroom/auxroom/internal/database"
	"github.com/auxroom/auxroom/internal/server"
	"github.com/auxroom/auxroom/internal/stats"
	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"
)

type AuxRoomApp struct {
	log            *log.Logger
	db             database.AuxRoomRepository
	mux            *http.Server
	ss             *server.SyncServer
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
	clock          server.Clock
}

func NewAuxRoomApp(mux *http.ServeMux, logger *log.Logger, ss *server.SyncServer, db database.AuxRoomRepository,
	sp stats.StatsProvider, cfg *config.Config) *AuxRoomApp {
	s := &AuxRoomApp{
		log:            logger,
		db:             db,
		ss:             ss,
		stats:          sp,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		clock:          server.NewRealClock(),
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.Handle("DELETE /api/rooms", s.authMiddleware(s.deleteRoom))
	mux.Handle("GET /api/rooms", s.authMiddleware(s.getRoom))
	mux.Handle("GET /api/tracks", s.authMiddleware(s.getTracks))
	// the websocket endpoint authenticates from the request itself
	// (query token, bearer header or subprotocol), not the cookie
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *AuxRoomApp) generateShortId() (string, error) {
	return shortid.Generate()
}

func (s *AuxRoomApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *AuxRoomApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
