// Package main provides the embedded SigninDesk backend for desktop
// platforms. The shell communicates via REST and WebSocket on localhost.
package main

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"github.com/kimhsiao/signindesk/backend/cmd/desktop/handlers"
	"github.com/kimhsiao/signindesk/backend/internal/config"
	"github.com/kimhsiao/signindesk/backend/internal/db"
	"github.com/kimhsiao/signindesk/backend/internal/delivery"
	"github.com/kimhsiao/signindesk/backend/internal/logging"
	"github.com/kimhsiao/signindesk/backend/internal/offline"
	"github.com/kimhsiao/signindesk/backend/internal/sheets"
)

func main() {
	configPath := os.Getenv("SIGNINDESK_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("setting", "config.json")
	}
	cfgStore := config.NewStore(config.Load(configPath))
	cfg := cfgStore.Snapshot()

	initLogging(&cfg)

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		logging.Error("Failed to open database", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database.DB); err != nil {
		logging.Error("Failed to migrate database", err)
		os.Exit(1)
	}
	repo := db.NewRepository(database.DB)
	defer repo.Close()

	store := offline.NewStore(filepath.Join(cfg.DataDir, "pending_signins.jsonl"))

	token, err := sheets.LoadToken(cfg.Google.CredentialsPath)
	if err != nil {
		// Scans still work: everything lands in the offline store until
		// credentials arrive and a flush is triggered.
		logging.Warn("Credentials unavailable, starting offline",
			map[string]interface{}{"path": cfg.Google.CredentialsPath, "error": err.Error()})
	}
	sink := sheets.NewClient(sheets.Options{
		Token:         token,
		SpreadsheetID: cfg.Google.SpreadsheetID,
		Worksheet:     cfg.Google.WorksheetName,
	})

	hub := NewWSHub()
	notifier := handlers.NewUINotifier(repo, hub)

	timeout := time.Duration(cfg.Delivery.TimeoutSeconds) * time.Second
	dispatcher := delivery.NewDispatcher(sink, store, notifier, timeout)
	reconciler := delivery.NewReconciler(sink, store)

	router := newRouter(cfgStore, repo, store, sink, dispatcher, reconciler, hub)

	logging.Info("SigninDesk backend starting", map[string]interface{}{
		"addr":     cfg.Server.Addr,
		"data_dir": cfg.DataDir,
		"event":    cfg.Event.Name,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		logging.Error("Server stopped", err)
		os.Exit(1)
	}
}

// initLogging sends structured logs to stdout and data_dir/logs/app.log.
func initLogging(cfg *config.Config) {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}

	out := io.Writer(os.Stdout)
	if fw, err := logging.FileWriter(cfg.DataDir); err == nil {
		out = io.MultiWriter(os.Stdout, fw)
	}
	logging.Init(out, level)
}

// newRouter wires the REST surface consumed by the shell.
func newRouter(cfg *config.Store, repo *db.Repository, store *offline.Store,
	sink *sheets.Client, dispatcher *delivery.Dispatcher,
	reconciler *delivery.Reconciler, hub *WSHub) *mux.Router {

	scanHandler := handlers.NewScanHandler(repo, dispatcher, cfg)
	flushHandler := handlers.NewFlushHandler(reconciler, hub)
	statusHandler := handlers.NewStatusHandler(dispatcher, reconciler, store, repo, cfg)
	historyHandler := handlers.NewHistoryHandler(repo)
	configHandler := handlers.NewConfigHandler(cfg, sink)
	attendeesHandler := handlers.NewAttendeesHandler(cfg)

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"signindesk-desktop"}`))
	}).Methods(http.MethodGet)

	api.HandleFunc("/scan", scanHandler.Submit).Methods(http.MethodPost)
	api.HandleFunc("/flush", flushHandler.Flush).Methods(http.MethodPost)
	api.HandleFunc("/status", statusHandler.Status).Methods(http.MethodGet)
	api.HandleFunc("/history", historyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/config", configHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/config", configHandler.Update).Methods(http.MethodPut)
	api.HandleFunc("/attendees/load", attendeesHandler.Load).Methods(http.MethodPost)
	api.HandleFunc("/attendees/template", attendeesHandler.Template).Methods(http.MethodPost)

	router.HandleFunc("/ws", HandleWebSocket(hub))

	return router
}
