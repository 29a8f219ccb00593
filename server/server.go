package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"Playly/config"
	"Playly/core/auth"
	"Playly/core/ingest"
	"Playly/core/trending"
	"Playly/db"
	"Playly/logger"
	"Playly/repository"
	"Playly/storage"
)

// APIHandler bundles the dependencies the HTTP handlers need.
type APIHandler struct {
	songRepo     repository.SongRepository
	playlistRepo repository.PlaylistRepository
	userRepo     repository.UserRepository
	pipeline     *ingest.Pipeline
	ranker       *trending.Ranker
	store        *storage.Store
	tokens       *auth.TokenIssuer
}

// NewAPIHandler creates an APIHandler with the given dependencies.
func NewAPIHandler(
	songRepo repository.SongRepository,
	playlistRepo repository.PlaylistRepository,
	userRepo repository.UserRepository,
	pipeline *ingest.Pipeline,
	ranker *trending.Ranker,
	store *storage.Store,
	tokens *auth.TokenIssuer,
) *APIHandler {
	return &APIHandler{
		songRepo:     songRepo,
		playlistRepo: playlistRepo,
		userRepo:     userRepo,
		pipeline:     pipeline,
		ranker:       ranker,
		store:        store,
		tokens:       tokens,
	}
}

// NewRouter builds the route table.
func NewRouter(h *APIHandler) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(CORSMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	// Public routes.
	api.HandleFunc("/auth/register", h.RegisterHandler).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/login", h.LoginHandler).Methods(http.MethodPost, http.MethodOptions)

	// Authenticated routes.
	authed := api.NewRoute().Subrouter()
	authed.Use(h.AuthMiddleware)
	authed.HandleFunc("/songs", h.GetSongsHandler).Methods(http.MethodGet, http.MethodOptions)
	authed.HandleFunc("/songs/trending", h.TrendingHandler).Methods(http.MethodGet, http.MethodOptions)
	authed.HandleFunc("/songs/{id:[0-9]+}", h.GetSongHandler).Methods(http.MethodGet, http.MethodOptions)
	authed.HandleFunc("/songs/{id:[0-9]+}/play", h.PlayCountHandler).Methods(http.MethodPut, http.MethodOptions)
	authed.HandleFunc("/songs/{id:[0-9]+}/download", h.DownloadCountHandler).Methods(http.MethodPut, http.MethodOptions)
	authed.HandleFunc("/playlists", h.GetPlaylistsHandler).Methods(http.MethodGet, http.MethodOptions)
	authed.HandleFunc("/playlists", h.CreatePlaylistHandler).Methods(http.MethodPost, http.MethodOptions)
	authed.HandleFunc("/playlists/{id:[0-9]+}", h.GetPlaylistTracksHandler).Methods(http.MethodGet, http.MethodOptions)
	authed.HandleFunc("/playlists/{id:[0-9]+}", h.RenamePlaylistHandler).Methods(http.MethodPut, http.MethodOptions)
	authed.HandleFunc("/playlists/{id:[0-9]+}", h.DeletePlaylistHandler).Methods(http.MethodDelete, http.MethodOptions)
	authed.HandleFunc("/playlists/{id:[0-9]+}/{songId:[0-9]+}", h.ToggleSongHandler).Methods(http.MethodPut, http.MethodOptions)

	// Admin routes.
	admin := api.NewRoute().Subrouter()
	admin.Use(h.AuthMiddleware, h.AdminMiddleware)
	admin.HandleFunc("/songs/upload", h.UploadSongsHandler).Methods(http.MethodPost, http.MethodOptions)

	// Object store proxy for audio and cover files.
	r.PathPrefix("/static/").HandlerFunc(h.StaticHandler).Methods(http.MethodGet, http.MethodOptions)

	return r
}

// Start connects the backing services, builds the HTTP server and blocks
// until shutdown.
func Start(cfg *config.Config) error {
	if err := db.ConnectDB(cfg); err != nil {
		return err
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		return err
	}

	if err := db.ConnectRedis(cfg); err != nil {
		// Redis only backs the trending cache, so run without it.
		logger.Warn("Redis unavailable, trending cache disabled", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
	}

	store, err := storage.NewStore(cfg)
	if err != nil {
		return err
	}

	songRepo := repository.NewMySQLSongRepository(db.DB)
	playlistRepo := repository.NewMySQLPlaylistRepository(db.DB)
	userRepo := repository.NewMySQLUserRepository(db.DB)

	pipeline := ingest.NewPipeline(songRepo, store)
	ranker := trending.NewRanker(songRepo, db.RedisClient)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)

	handler := NewAPIHandler(songRepo, playlistRepo, userRepo, pipeline, ranker, store, tokens)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      NewRouter(handler),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		logger.Info("Shutting down", logger.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}
