// internal/store/store.go
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// TriggerRow is the durable mirror of a trigger definition.
type TriggerRow struct {
	ID          string
	Kind        string
	Priority    int
	Cooldown    time.Duration
	Enabled     bool
	Description string
}

// DecisionRecord is one row of the append-only decision history.
// UserFeedback and FeedbackAt stay empty until feedback arrives, and are
// set at most once.
type DecisionRecord struct {
	ID              int64         `json:"-"`
	DecisionID      string        `json:"decision_id"`
	TriggerID       string        `json:"trigger_id"`
	InteractionType string        `json:"interaction_type"`
	PriorityTier    string        `json:"priority_tier"`
	Reason          string        `json:"reason"`
	Urgency         float64       `json:"urgency"`
	Importance      float64       `json:"importance"`
	DisturbanceCost float64       `json:"disturbance_cost"`
	FinalScore      float64       `json:"final_score"`
	Payload         string        `json:"payload,omitempty"` // JSON-serialized, scrubbed before storage
	CreatedAt       time.Time     `json:"created_at"`
	UserFeedback    string        `json:"user_feedback,omitempty"`
	FeedbackAt      time.Time     `json:"feedback_at,omitzero"`
	ResponseLatency time.Duration `json:"response_latency,omitempty"`
}

// EffectivenessRow is the per-trigger feedback aggregate.
type EffectivenessRow struct {
	TriggerID      string        `json:"trigger_id"`
	Total          int           `json:"total"`
	Accepted       int           `json:"accepted"`
	Ignored        int           `json:"ignored"`
	Dismissed      int           `json:"dismissed"`
	AcceptanceRate float64       `json:"acceptance_rate"`
	AvgLatency     time.Duration `json:"avg_latency,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Store wraps the SQLite database holding trigger configuration,
// parameters, decision history, and effectiveness aggregates.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL,
    applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trigger_config (
    trigger_id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    priority INTEGER NOT NULL,
    cooldown_ms INTEGER NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT TRUE,
    description TEXT,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trigger_parameters (
    trigger_id TEXT PRIMARY KEY,
    params TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trigger_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    decision_id TEXT NOT NULL UNIQUE,
    trigger_id TEXT NOT NULL,
    interaction_type TEXT NOT NULL,
    priority_tier TEXT NOT NULL,
    reason TEXT,
    urgency REAL NOT NULL,
    importance REAL NOT NULL,
    disturbance_cost REAL NOT NULL,
    final_score REAL NOT NULL,
    payload TEXT,
    created_at DATETIME NOT NULL,
    user_feedback TEXT,
    feedback_at DATETIME,
    response_latency_ms INTEGER
);

CREATE INDEX IF NOT EXISTS idx_trigger_history_trigger ON trigger_history(trigger_id);
CREATE INDEX IF NOT EXISTS idx_trigger_history_created ON trigger_history(created_at);

CREATE TABLE IF NOT EXISTS trigger_effectiveness (
    trigger_id TEXT PRIMARY KEY,
    total INTEGER NOT NULL DEFAULT 0,
    accepted INTEGER NOT NULL DEFAULT 0,
    ignored INTEGER NOT NULL DEFAULT 0,
    dismissed INTEGER NOT NULL DEFAULT 0,
    acceptance_rate REAL NOT NULL DEFAULT 0,
    avg_latency_ms REAL NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Open opens or creates the trigger database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if count == 0 {
		db.Exec("INSERT INTO schema_version (version) VALUES (1)")
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertTrigger inserts or replaces the durable mirror of a trigger.
func (s *Store) UpsertTrigger(row TriggerRow) error {
	_, err := s.db.Exec(`
		INSERT INTO trigger_config (trigger_id, kind, priority, cooldown_ms, enabled, description, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trigger_id) DO UPDATE SET
			kind = excluded.kind,
			priority = excluded.priority,
			cooldown_ms = excluded.cooldown_ms,
			enabled = excluded.enabled,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		row.ID, row.Kind, row.Priority, row.Cooldown.Milliseconds(),
		row.Enabled, row.Description, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upserting trigger %s: %w", row.ID, err)
	}
	return nil
}

// UpsertParameters replaces the stored parameter bag for a trigger.
// Merge semantics live in the catalog; the store writes the full bag.
func (s *Store) UpsertParameters(triggerID string, params map[string]any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding parameters for %s: %w", triggerID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO trigger_parameters (trigger_id, params, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(trigger_id) DO UPDATE SET
			params = excluded.params,
			updated_at = excluded.updated_at`,
		triggerID, string(data), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upserting parameters for %s: %w", triggerID, err)
	}
	return nil
}

// LoadTriggers returns all persisted trigger rows.
func (s *Store) LoadTriggers() ([]TriggerRow, error) {
	rows, err := s.db.Query(
		"SELECT trigger_id, kind, priority, cooldown_ms, enabled, description FROM trigger_config",
	)
	if err != nil {
		return nil, fmt.Errorf("querying triggers: %w", err)
	}
	defer rows.Close()

	var out []TriggerRow
	for rows.Next() {
		var r TriggerRow
		var cooldownMs int64
		var desc sql.NullString
		if err := rows.Scan(&r.ID, &r.Kind, &r.Priority, &cooldownMs, &r.Enabled, &desc); err != nil {
			return nil, fmt.Errorf("scanning trigger row: %w", err)
		}
		r.Cooldown = time.Duration(cooldownMs) * time.Millisecond
		r.Description = desc.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadParameters returns the stored parameter bag for a trigger, or nil
// if none is stored.
func (s *Store) LoadParameters(triggerID string) (map[string]any, error) {
	var data string
	err := s.db.QueryRow(
		"SELECT params FROM trigger_parameters WHERE trigger_id = ?", triggerID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading parameters for %s: %w", triggerID, err)
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(data), &params); err != nil {
		return nil, fmt.Errorf("decoding parameters for %s: %w", triggerID, err)
	}
	return params, nil
}

// AppendDecision stores a decision history row and returns its row id.
func (s *Store) AppendDecision(rec DecisionRecord) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO trigger_history
		(decision_id, trigger_id, interaction_type, priority_tier, reason,
		 urgency, importance, disturbance_cost, final_score, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.DecisionID, rec.TriggerID, rec.InteractionType, rec.PriorityTier,
		rec.Reason, rec.Urgency, rec.Importance, rec.DisturbanceCost,
		rec.FinalScore, rec.Payload, rec.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("recording decision: %w", err)
	}
	return result.LastInsertId()
}

// SetFeedback attaches an outcome to the most recent decision for a
// trigger that has none yet. Feedback is first-write-wins: a row that
// already carries feedback is never updated again. Returns false when no
// eligible row exists.
func (s *Store) SetFeedback(triggerID, outcome string, latency time.Duration) (bool, error) {
	result, err := s.db.Exec(`
		UPDATE trigger_history
		SET user_feedback = ?, feedback_at = ?, response_latency_ms = ?
		WHERE id = (
			SELECT id FROM trigger_history
			WHERE trigger_id = ? AND feedback_at IS NULL
			ORDER BY created_at DESC, id DESC LIMIT 1
		)`,
		outcome, time.Now(), latency.Milliseconds(), triggerID,
	)
	if err != nil {
		return false, fmt.Errorf("setting feedback for %s: %w", triggerID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting feedback for %s: %w", triggerID, err)
	}
	return n > 0, nil
}

// SetFeedbackByDecision attaches an outcome to a specific decision row.
// Same first-write-wins semantics as SetFeedback.
func (s *Store) SetFeedbackByDecision(decisionID, outcome string, latency time.Duration) (bool, error) {
	result, err := s.db.Exec(`
		UPDATE trigger_history
		SET user_feedback = ?, feedback_at = ?, response_latency_ms = ?
		WHERE decision_id = ? AND feedback_at IS NULL`,
		outcome, time.Now(), latency.Milliseconds(), decisionID,
	)
	if err != nil {
		return false, fmt.Errorf("setting feedback for decision %s: %w", decisionID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting feedback for decision %s: %w", decisionID, err)
	}
	return n > 0, nil
}

// RecomputeEffectiveness rebuilds the aggregate row for a trigger from
// its history inside one transaction, so the aggregate never drifts from
// the rows it summarizes.
func (s *Store) RecomputeEffectiveness(triggerID string) (*EffectivenessRow, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var row EffectivenessRow
	row.TriggerID = triggerID

	var avgLatencyMs float64
	err = tx.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN user_feedback = 'accepted' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN user_feedback = 'ignored' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN user_feedback = 'dismissed' THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(CASE WHEN feedback_at IS NOT NULL THEN response_latency_ms END), 0)
		FROM trigger_history WHERE trigger_id = ?`, triggerID,
	).Scan(&row.Total, &row.Accepted, &row.Ignored, &row.Dismissed, &avgLatencyMs)
	if err != nil {
		return nil, fmt.Errorf("aggregating history for %s: %w", triggerID, err)
	}
	row.AvgLatency = time.Duration(avgLatencyMs) * time.Millisecond

	if responded := row.Accepted + row.Ignored + row.Dismissed; responded > 0 {
		row.AcceptanceRate = float64(row.Accepted) / float64(responded)
	}
	row.UpdatedAt = time.Now()

	_, err = tx.Exec(`
		INSERT INTO trigger_effectiveness
		(trigger_id, total, accepted, ignored, dismissed, acceptance_rate, avg_latency_ms, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trigger_id) DO UPDATE SET
			total = excluded.total,
			accepted = excluded.accepted,
			ignored = excluded.ignored,
			dismissed = excluded.dismissed,
			acceptance_rate = excluded.acceptance_rate,
			avg_latency_ms = excluded.avg_latency_ms,
			updated_at = excluded.updated_at`,
		row.TriggerID, row.Total, row.Accepted, row.Ignored, row.Dismissed,
		row.AcceptanceRate, row.AvgLatency.Milliseconds(), row.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting effectiveness for %s: %w", triggerID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing effectiveness for %s: %w", triggerID, err)
	}
	return &row, nil
}

// Effectiveness returns the aggregate row for a trigger, or nil when the
// trigger has never received feedback.
func (s *Store) Effectiveness(triggerID string) (*EffectivenessRow, error) {
	var row EffectivenessRow
	var latencyMs float64
	err := s.db.QueryRow(`
		SELECT trigger_id, total, accepted, ignored, dismissed, acceptance_rate, avg_latency_ms, updated_at
		FROM trigger_effectiveness WHERE trigger_id = ?`, triggerID,
	).Scan(&row.TriggerID, &row.Total, &row.Accepted, &row.Ignored,
		&row.Dismissed, &row.AcceptanceRate, &latencyMs, &row.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading effectiveness for %s: %w", triggerID, err)
	}
	row.AvgLatency = time.Duration(latencyMs) * time.Millisecond
	return &row, nil
}

// AllEffectiveness returns every aggregate row.
func (s *Store) AllEffectiveness() ([]EffectivenessRow, error) {
	rows, err := s.db.Query(`
		SELECT trigger_id, total, accepted, ignored, dismissed, acceptance_rate, avg_latency_ms, updated_at
		FROM trigger_effectiveness ORDER BY trigger_id`)
	if err != nil {
		return nil, fmt.Errorf("querying effectiveness: %w", err)
	}
	defer rows.Close()

	var out []EffectivenessRow
	for rows.Next() {
		var row EffectivenessRow
		var latencyMs float64
		if err := rows.Scan(&row.TriggerID, &row.Total, &row.Accepted, &row.Ignored,
			&row.Dismissed, &row.AcceptanceRate, &latencyMs, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning effectiveness row: %w", err)
		}
		row.AvgLatency = time.Duration(latencyMs) * time.Millisecond
		out = append(out, row)
	}
	return out, rows.Err()
}

// RecentDecisionCount counts decisions emitted since the given time,
// across all triggers. Used by the disturbance cost model's frequency
// component.
func (s *Store) RecentDecisionCount(since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM trigger_history WHERE created_at >= ?", since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting recent decisions: %w", err)
	}
	return count, nil
}

// LastFired returns each trigger's most recent decision time. Used to
// seed the cooldown tracker across restarts.
func (s *Store) LastFired() (map[string]time.Time, error) {
	rows, err := s.db.Query(`
		SELECT trigger_id, created_at FROM trigger_history
		WHERE id IN (SELECT MAX(id) FROM trigger_history GROUP BY trigger_id)`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying last fired times: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("scanning last fired row: %w", err)
		}
		out[id] = at
	}
	return out, rows.Err()
}

// History retrieves decision history, newest first, optionally filtered
// by trigger id.
func (s *Store) History(triggerID string, limit int) ([]DecisionRecord, error) {
	query := `SELECT id, decision_id, trigger_id, interaction_type, priority_tier, reason,
		urgency, importance, disturbance_cost, final_score, payload, created_at,
		user_feedback, feedback_at, response_latency_ms
		FROM trigger_history WHERE 1=1`
	var args []any

	if triggerID != "" {
		query += " AND trigger_id = ?"
		args = append(args, triggerID)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var r DecisionRecord
		var payload, feedback sql.NullString
		var feedbackAt sql.NullTime
		var latencyMs sql.NullInt64
		if err := rows.Scan(&r.ID, &r.DecisionID, &r.TriggerID, &r.InteractionType,
			&r.PriorityTier, &r.Reason, &r.Urgency, &r.Importance, &r.DisturbanceCost,
			&r.FinalScore, &payload, &r.CreatedAt, &feedback, &feedbackAt, &latencyMs); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		r.Payload = payload.String
		r.UserFeedback = feedback.String
		if feedbackAt.Valid {
			r.FeedbackAt = feedbackAt.Time
		}
		if latencyMs.Valid {
			r.ResponseLatency = time.Duration(latencyMs.Int64) * time.Millisecond
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// TriggerCounts returns decision counts per trigger within the last
// `days` days, newest-heavy triggers first.
func (s *Store) TriggerCounts(days int) (map[string]int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	rows, err := s.db.Query(
		"SELECT trigger_id, COUNT(*) FROM trigger_history WHERE created_at >= ? GROUP BY trigger_id",
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("counting decisions by trigger: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Cleanup removes history rows older than the specified number of days.
func (s *Store) Cleanup(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result, err := s.db.Exec(
		"DELETE FROM trigger_history WHERE created_at < ?", cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("cleaning up history: %w", err)
	}
	return result.RowsAffected()
}
