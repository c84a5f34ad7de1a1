package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rumpbot/rumpbot/pkg/models"
)

// InvocationLog is the append-only sink for per-call cost and token
// records. The core only writes; aggregate reads serve the usage
// command and external dashboards.
type InvocationLog struct {
	db *DB
}

// NewInvocationLog creates an invocation log backed by the state database.
func NewInvocationLog(db *DB) *InvocationLog {
	return &InvocationLog{db: db}
}

// Append persists one invocation record.
func (l *InvocationLog) Append(rec models.InvocationRecord) error {
	var usage sql.NullString
	if len(rec.ModelUsage) > 0 {
		data, err := json.Marshal(rec.ModelUsage)
		if err != nil {
			return fmt.Errorf("marshal model usage: %w", err)
		}
		usage = sql.NullString{String: string(data), Valid: true}
	}

	isError := 0
	if rec.IsError {
		isError = 1
	}

	_, err := l.db.Exec(`
		INSERT INTO invocations (
			timestamp, chat_id, tier, duration_ms, duration_api_ms,
			cost_usd, num_turns, stop_reason, is_error, model_usage
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, formatTime(rec.Timestamp), rec.ChatID, string(rec.Tier),
		rec.DurationMs, rec.DurationAPIMs, rec.CostUSD, rec.NumTurns,
		rec.StopReason, isError, usage)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

// UsageTotals aggregates the whole log.
type UsageTotals struct {
	Calls        int
	Errors       int
	CostUSD      float64
	DurationMs   int64
	InputTokens  int64
	OutputTokens int64
}

// DayUsage is the rollup for one UTC day.
type DayUsage struct {
	Day     string
	Calls   int
	CostUSD float64
}

// TierUsage is the rollup for one tier.
type TierUsage struct {
	Tier    models.Tier
	Calls   int
	CostUSD float64
}

// Totals returns log-wide aggregates. Token counts are summed from the
// stored per-model usage maps.
func (l *InvocationLog) Totals() (*UsageTotals, error) {
	totals := &UsageTotals{}
	row := l.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(is_error), 0),
		       COALESCE(SUM(cost_usd), 0), COALESCE(SUM(duration_ms), 0)
		FROM invocations
	`)
	if err := row.Scan(&totals.Calls, &totals.Errors, &totals.CostUSD, &totals.DurationMs); err != nil {
		return nil, fmt.Errorf("scan usage totals: %w", err)
	}

	rows, err := l.db.Query("SELECT model_usage FROM invocations WHERE model_usage IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("query model usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan model usage: %w", err)
		}
		var usage map[string]models.ModelTokens
		if err := json.Unmarshal([]byte(raw), &usage); err != nil {
			continue
		}
		for _, mt := range usage {
			totals.InputTokens += mt.InputTokens + mt.CacheReadInputTokens + mt.CacheCreationInputTokens
			totals.OutputTokens += mt.OutputTokens
		}
	}
	return totals, rows.Err()
}

// PerDay returns per-UTC-day rollups for the last n days, oldest first.
func (l *InvocationLog) PerDay(days int) ([]DayUsage, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	rows, err := l.db.Query(`
		SELECT substr(timestamp, 1, 10) AS day, COUNT(*), COALESCE(SUM(cost_usd), 0)
		FROM invocations
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day
	`, formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("query per-day usage: %w", err)
	}
	defer rows.Close()

	var out []DayUsage
	for rows.Next() {
		var d DayUsage
		if err := rows.Scan(&d.Day, &d.Calls, &d.CostUSD); err != nil {
			return nil, fmt.Errorf("scan per-day usage: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PerTier returns rollups grouped by invocation tier.
func (l *InvocationLog) PerTier() ([]TierUsage, error) {
	rows, err := l.db.Query(`
		SELECT tier, COUNT(*), COALESCE(SUM(cost_usd), 0)
		FROM invocations
		GROUP BY tier
		ORDER BY tier
	`)
	if err != nil {
		return nil, fmt.Errorf("query per-tier usage: %w", err)
	}
	defer rows.Close()

	var out []TierUsage
	for rows.Next() {
		var t TierUsage
		var tier string
		if err := rows.Scan(&tier, &t.Calls, &t.CostUSD); err != nil {
			return nil, fmt.Errorf("scan per-tier usage: %w", err)
		}
		t.Tier = models.Tier(tier)
		out = append(out, t)
	}
	return out, rows.Err()
}
