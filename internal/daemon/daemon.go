// internal/daemon/daemon.go
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/colebrumley/interruptd/internal/config"
	"github.com/colebrumley/interruptd/internal/engine"
	"github.com/colebrumley/interruptd/internal/logging"
	"github.com/colebrumley/interruptd/internal/notify"
	"github.com/colebrumley/interruptd/internal/security"
	"github.com/colebrumley/interruptd/internal/signal"
	"github.com/colebrumley/interruptd/internal/store"
	"github.com/colebrumley/interruptd/internal/trigger"
)

// Daemon wires the engine to its config, store, providers, executors,
// HTTP API, and maintenance jobs.
type Daemon struct {
	configPath  string
	triggersDir string
	config      *config.Global
	logger      *slog.Logger
	store       *store.Store
	catalog     *trigger.Catalog
	engine      *engine.Engine
	httpServer  *http.Server
	cron        *cron.Cron
	startTime   time.Time

	mu          sync.RWMutex
	fileDefined map[string]bool // trigger ids that came from the triggers dir
}

// New creates a new daemon instance
func New(configPath, triggersDir string) *Daemon {
	return &Daemon{
		configPath:  configPath,
		triggersDir: triggersDir,
		fileDefined: make(map[string]bool),
	}
}

// Run starts the daemon and blocks until context is cancelled
func (d *Daemon) Run(ctx context.Context) error {
	d.startTime = time.Now()

	cfg, err := config.LoadGlobal(d.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	d.config = cfg

	logWriter, err := d.initLogWriter()
	if err != nil {
		d.logger = logging.NewLogger(cfg.Logging.Format, cfg.Daemon.LogLevel, os.Stdout)
		d.logger.Warn("failed to initialize rotating log writer, using stdout", "error", err)
	} else {
		d.logger = logging.NewLogger(cfg.Logging.Format, cfg.Daemon.LogLevel, logWriter)
	}

	d.logger.Info("starting daemon", "config", d.configPath, "triggers_dir", d.triggersDir)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening trigger store: %w", err)
	}
	d.store = st

	d.catalog = trigger.NewCatalog(st, d.logger)
	if err := d.catalog.Restore(); err != nil {
		d.logger.Warn("could not restore persisted triggers", "error", err)
	}

	// built-ins never override restored or file-defined triggers
	for _, def := range trigger.Defaults() {
		d.catalog.RegisterDefault(def.Definition, def.Parameters)
	}
	d.loadTriggerFiles()

	d.engine = engine.New(d.catalog, st, d.buildSources(), d.buildExecutor(), d.logger, engine.Options{
		EvaluatorTimeout: cfg.Engine.EvaluatorTimeout.Std(),
		FeedbackTimeout:  cfg.Engine.FeedbackTimeout.Std(),
		DefaultUser:      cfg.Engine.DefaultUser,
	})

	d.startMaintenance()
	d.engine.StartMonitoring(cfg.Engine.Interval.Std())

	// built before the goroutine starts so shutdown never races the
	// assignment
	d.httpServer = d.newHTTPServer()

	go d.serveHTTP()
	go d.startHotReload(ctx)

	d.logger.Info("daemon started",
		"triggers_loaded", len(d.catalog.List()),
		"interval", cfg.Engine.Interval.Std(),
	)

	<-ctx.Done()
	return d.shutdown()
}

// initLogWriter creates a rotating log writer under the state directory.
func (d *Daemon) initLogWriter() (*logging.RotatingWriter, error) {
	logDir := filepath.Join(filepath.Dir(d.config.Store.Path), "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	logPath := filepath.Join(logDir, "interruptd.log")
	return logging.NewRotatingWriter(logPath, 50*1024*1024) // 50MB
}

// buildSources wires the file-backed providers next to the store, with
// the context lookup cached for a few seconds.
func (d *Daemon) buildSources() signal.Sources {
	stateDir := filepath.Dir(d.config.Store.Path)
	ctxProvider := signal.NewFileContextProvider(filepath.Join(stateDir, "context.json"), 10*time.Minute)
	return signal.Sources{
		Behavior:    signal.NewFileBehaviorProvider(filepath.Join(stateDir, "events.jsonl")),
		Context:     signal.NewCachedContextProvider(ctxProvider, 10*time.Second),
		Suggestions: signal.NewFileSuggestionProvider(filepath.Join(stateDir, "suggestions.json")),
	}
}

func (d *Daemon) buildExecutor() engine.Executor {
	logExec := notify.NewLogExecutor(d.logger)
	if !d.config.Slack.Enabled {
		return logExec
	}
	slackExec := notify.NewSlackExecutor(d.config.Slack.Token, d.config.Slack.Channel, d.logger)
	return notify.NewMulti(logExec, slackExec)
}

// loadTriggerFiles registers every trigger defined in the triggers
// directory. File definitions always win over built-ins.
func (d *Daemon) loadTriggerFiles() {
	if d.triggersDir == "" {
		return
	}
	if _, err := os.Stat(d.triggersDir); errors.Is(err, fs.ErrNotExist) {
		// the normal first-run state
		return
	}
	if err := security.ValidateDirectoryPermissions(d.triggersDir); err != nil {
		d.logger.Error("CRITICAL: triggers directory has unsafe permissions", "error", err, "path", d.triggersDir)
		// the operator should fix permissions; keep going
	}

	defs, err := config.LoadTriggersDir(d.triggersDir)
	if err != nil {
		// the dir can vanish between the stat above and the read
		if !errors.Is(err, fs.ErrNotExist) {
			d.logger.Warn("could not load trigger files", "error", err)
		}
		return
	}

	seen := make(map[string]bool, len(defs))
	for _, tc := range defs {
		def, params, err := definitionFromConfig(tc)
		if err != nil {
			d.logger.Error("invalid trigger file, skipping", "trigger", tc.ID, "error", err)
			continue
		}
		d.catalog.Register(def, params)
		seen[def.ID] = true
	}

	// a removed file disables its trigger; definitions are never deleted
	d.mu.Lock()
	for id := range d.fileDefined {
		if !seen[id] {
			enabled := false
			d.catalog.UpdateConfig(id, trigger.ConfigUpdate{Enabled: &enabled})
			d.logger.Info("disabled trigger for removed file", "trigger", id)
		}
	}
	d.fileDefined = seen
	d.mu.Unlock()
}

func definitionFromConfig(tc *config.Trigger) (trigger.Definition, map[string]any, error) {
	kind, err := trigger.ParseKind(tc.Kind)
	if err != nil {
		return trigger.Definition{}, nil, err
	}
	def := trigger.Definition{
		ID:          tc.ID,
		Kind:        kind,
		Priority:    tc.Priority,
		Cooldown:    tc.Cooldown.Std(),
		Enabled:     tc.IsEnabled(),
		Description: tc.Description,
	}
	if def.Priority == 0 {
		def.Priority = 5
	}
	if def.Cooldown == 0 {
		def.Cooldown = 30 * time.Minute
	}
	return def, tc.Parameters, nil
}

// startMaintenance schedules the recurring jobs: nightly history
// cleanup and an hourly effectiveness snapshot in the log.
func (d *Daemon) startMaintenance() {
	d.cron = cron.New()

	d.cron.AddFunc("0 3 * * *", func() {
		deleted, err := d.store.Cleanup(d.config.Engine.RetentionDays)
		if err != nil {
			d.logger.Warn("history cleanup failed", "error", err)
		} else if deleted > 0 {
			d.logger.Info("cleaned up old decision history", "deleted", deleted)
		}
	})

	d.cron.AddFunc("@hourly", func() {
		stats, err := d.engine.TriggerStatistics(1)
		if err != nil {
			d.logger.Warn("statistics snapshot failed", "error", err)
			return
		}
		d.logger.Info("daily activity snapshot",
			"decisions_24h", stats.TotalTriggers,
			"triggers_active", len(stats.ByTrigger),
		)
	})

	d.cron.Start()
}

// startHotReload watches the triggers directory and re-registers
// definitions when files change.
func (d *Daemon) startHotReload(ctx context.Context) {
	if d.triggersDir == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.logger.Error("could not create triggers watcher", "error", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(d.triggersDir); err != nil {
		d.logger.Error("could not watch triggers directory", "error", err, "dir", d.triggersDir)
		return
	}

	d.logger.Info("hot-reload watcher started", "dir", d.triggersDir)

	// Debounce: wait 1 second after last event before reloading
	var debounceTimer *time.Timer
	debounceCh := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(1*time.Second, func() {
				select {
				case debounceCh <- struct{}{}:
				default:
				}
			})

		case <-debounceCh:
			d.logger.Info("reloading trigger files (hot-reload)")
			d.loadTriggerFiles()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("triggers watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

func (d *Daemon) shutdown() error {
	d.logger.Info("daemon stopping")

	if d.cron != nil {
		cronCtx := d.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-time.After(5 * time.Second):
		}
	}

	d.engine.Close()

	if d.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		d.httpServer.Shutdown(shutdownCtx)
		cancel()
	}

	if d.store != nil {
		d.store.Close()
	}
	return nil
}

// newHTTPServer builds the HTTP server with health and API endpoints.
func (d *Daemon) newHTTPServer() *http.Server {
	addr := fmt.Sprintf("%s:%d",
		d.config.Daemon.ListenAddress,
		d.config.Daemon.ListenPort,
	)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", rateLimitHandler(60, d.handleHealth))
	mux.HandleFunc("/api/triggers", rateLimitHandler(30, d.handleTriggers))
	mux.HandleFunc("/api/triggers/", rateLimitHandler(30, d.handleTriggerConfig))
	mux.HandleFunc("/api/history", rateLimitHandler(30, d.handleHistory))
	mux.HandleFunc("/api/stats", rateLimitHandler(30, d.handleStats))
	mux.HandleFunc("/api/feedback", rateLimitHandler(30, d.handleFeedback))
	mux.HandleFunc("/api/evaluate", rateLimitHandler(10, d.handleEvaluate))

	return &http.Server{Addr: addr, Handler: mux}
}

func (d *Daemon) serveHTTP() {
	d.logger.Info("starting HTTP server", "address", d.httpServer.Addr)
	if err := d.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		d.logger.Error("HTTP server error", "error", err)
	}
}

func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snaps := d.catalog.List()
	enabled := 0
	for _, s := range snaps {
		if s.Definition.Enabled {
			enabled++
		}
	}

	uptime := time.Since(d.startTime).Truncate(time.Second).String()
	resp := map[string]any{
		"status":           "ok",
		"uptime":           uptime,
		"triggers_loaded":  len(snaps),
		"triggers_enabled": enabled,
	}

	writeJSON(w, resp)
}

// triggerStatus is the stable API shape of one trigger.
type triggerStatus struct {
	TriggerID   string         `json:"trigger_id"`
	Kind        string         `json:"kind"`
	Priority    int            `json:"priority"`
	Cooldown    string         `json:"cooldown"`
	Enabled     bool           `json:"enabled"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

func (d *Daemon) handleTriggers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var out []triggerStatus
	for _, snap := range d.catalog.List() {
		def := snap.Definition
		out = append(out, triggerStatus{
			TriggerID:   def.ID,
			Kind:        string(def.Kind),
			Priority:    def.Priority,
			Cooldown:    def.Cooldown.String(),
			Enabled:     def.Enabled,
			Description: def.Description,
			Parameters:  snap.Parameters,
		})
	}
	writeJSON(w, out)
}

// configUpdate is the request body for POST /api/triggers/{id}/config.
type configUpdate struct {
	Enabled   *bool    `json:"enabled,omitempty"`
	Priority  *int     `json:"priority,omitempty"`
	Cooldown  *string  `json:"cooldown,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	// Parameters, when present, is merged into the parameter bag.
	Parameters map[string]any `json:"parameters,omitempty"`
}

func (d *Daemon) handleTriggerConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// path: /api/triggers/{id}/config
	rest := strings.TrimPrefix(r.URL.Path, "/api/triggers/")
	id, action, ok := strings.Cut(rest, "/")
	if !ok || action != "config" || id == "" {
		http.NotFound(w, r)
		return
	}

	var body configUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("parsing request: %v", err), http.StatusBadRequest)
		return
	}

	update := trigger.ConfigUpdate{
		Enabled:   body.Enabled,
		Priority:  body.Priority,
		Threshold: body.Threshold,
	}
	if body.Cooldown != nil {
		cd, err := time.ParseDuration(*body.Cooldown)
		if err != nil {
			http.Error(w, fmt.Sprintf("parsing cooldown: %v", err), http.StatusBadRequest)
			return
		}
		update.Cooldown = &cd
	}

	if !d.engine.UpdateTriggerConfig(id, update) {
		http.Error(w, "unknown trigger", http.StatusNotFound)
		return
	}
	if len(body.Parameters) > 0 {
		d.engine.UpdateTriggerParameters(id, body.Parameters)
	}
	writeJSON(w, map[string]any{"updated": true})
}

func (d *Daemon) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	triggerID := r.URL.Query().Get("trigger")
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		fmt.Sscanf(l, "%d", &limit)
	}
	if limit > 500 {
		limit = 500
	}

	records, err := d.store.History(triggerID, limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("querying history: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

func (d *Daemon) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		fmt.Sscanf(v, "%d", &days)
	}

	stats, err := d.engine.TriggerStatistics(days)
	if err != nil {
		http.Error(w, fmt.Sprintf("computing statistics: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

// feedbackRequest is the request body for POST /api/feedback.
type feedbackRequest struct {
	TriggerID string `json:"trigger_id"`
	Outcome   string `json:"outcome"`
	LatencyMs int64  `json:"latency_ms"`
}

func (d *Daemon) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("parsing request: %v", err), http.StatusBadRequest)
		return
	}

	latency := time.Duration(body.LatencyMs) * time.Millisecond
	if err := d.engine.RecordUserFeedback(body.TriggerID, body.Outcome, latency); err != nil {
		switch {
		case errors.Is(err, engine.ErrUnknownTrigger), errors.Is(err, engine.ErrNoPendingDecision):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	writeJSON(w, map[string]any{"recorded": true})
}

// evaluateRequest is the request body for POST /api/evaluate.
type evaluateRequest struct {
	UserID string `json:"user_id"`
	// Execute, when true, stamps the cooldown and dispatches the
	// decision instead of just reporting it.
	Execute bool `json:"execute"`
}

func (d *Daemon) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body evaluateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, fmt.Sprintf("parsing request: %v", err), http.StatusBadRequest)
			return
		}
	}
	if body.UserID == "" {
		body.UserID = d.config.Engine.DefaultUser
	}

	dec := d.engine.EvaluateInteractionNeed(r.Context(), body.UserID)
	if dec == nil {
		writeJSON(w, map[string]any{"decision": nil})
		return
	}
	if body.Execute {
		if err := d.engine.ExecuteInteraction(r.Context(), *dec, body.UserID); err != nil {
			http.Error(w, fmt.Sprintf("executing interaction: %v", err), http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, map[string]any{"decision": dec, "executed": body.Execute})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// rateLimitHandler wraps an HTTP handler with a simple token-bucket rate
// limiter.
func rateLimitHandler(requestsPerMinute int, handler http.HandlerFunc) http.HandlerFunc {
	var mu sync.Mutex
	tokens := requestsPerMinute
	lastRefill := time.Now()

	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		now := time.Now()
		elapsed := now.Sub(lastRefill)
		refill := int(elapsed.Minutes() * float64(requestsPerMinute))
		if refill > 0 {
			tokens += refill
			if tokens > requestsPerMinute {
				tokens = requestsPerMinute
			}
			lastRefill = now
		}

		if tokens <= 0 {
			mu.Unlock()
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		tokens--
		mu.Unlock()

		handler(w, r)
	}
}
