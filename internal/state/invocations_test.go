package state

import (
	"testing"
	"time"

	"github.com/rumpbot/rumpbot/pkg/models"
)

func TestInvocationLog_AppendAndTotals(t *testing.T) {
	log := NewInvocationLog(newTestDB(t))

	records := []models.InvocationRecord{
		{
			Timestamp:  time.Now().UTC(),
			ChatID:     "chat1",
			Tier:       models.TierChat,
			DurationMs: 1200,
			CostUSD:    0.05,
			NumTurns:   3,
			ModelUsage: map[string]models.ModelTokens{
				"claude-sonnet": {InputTokens: 100, OutputTokens: 50},
			},
		},
		{
			Timestamp:  time.Now().UTC(),
			ChatID:     "chat1",
			Tier:       models.TierWorker,
			DurationMs: 4500,
			CostUSD:    0.20,
			IsError:    true,
		},
	}
	for _, rec := range records {
		if err := log.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	totals, err := log.Totals()
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Calls != 2 {
		t.Errorf("Calls = %d, want 2", totals.Calls)
	}
	if totals.Errors != 1 {
		t.Errorf("Errors = %d, want 1", totals.Errors)
	}
	if diff := totals.CostUSD - 0.25; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CostUSD = %f, want 0.25", totals.CostUSD)
	}
	if totals.InputTokens != 100 {
		t.Errorf("InputTokens = %d, want 100", totals.InputTokens)
	}
	if totals.OutputTokens != 50 {
		t.Errorf("OutputTokens = %d, want 50", totals.OutputTokens)
	}
}

func TestInvocationLog_PerDay(t *testing.T) {
	log := NewInvocationLog(newTestDB(t))

	now := time.Now().UTC()
	log.Append(models.InvocationRecord{Timestamp: now, ChatID: "c", Tier: models.TierChat, CostUSD: 0.10})
	log.Append(models.InvocationRecord{Timestamp: now, ChatID: "c", Tier: models.TierWorker, CostUSD: 0.30})
	log.Append(models.InvocationRecord{Timestamp: now.AddDate(0, 0, -30), ChatID: "c", Tier: models.TierChat, CostUSD: 5.00})

	days, err := log.PerDay(7)
	if err != nil {
		t.Fatalf("PerDay: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("got %d day buckets, want 1 (old record outside window)", len(days))
	}
	if days[0].Calls != 2 {
		t.Errorf("Calls = %d, want 2", days[0].Calls)
	}
	if diff := days[0].CostUSD - 0.40; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("CostUSD = %f, want 0.40", days[0].CostUSD)
	}
	if days[0].Day != now.Format("2006-01-02") {
		t.Errorf("Day = %q, want %q", days[0].Day, now.Format("2006-01-02"))
	}
}

func TestInvocationLog_PerTier(t *testing.T) {
	log := NewInvocationLog(newTestDB(t))

	now := time.Now().UTC()
	log.Append(models.InvocationRecord{Timestamp: now, ChatID: "c", Tier: models.TierChat, CostUSD: 0.01})
	log.Append(models.InvocationRecord{Timestamp: now, ChatID: "c", Tier: models.TierWorker, CostUSD: 0.02})
	log.Append(models.InvocationRecord{Timestamp: now, ChatID: "c", Tier: models.TierWorker, CostUSD: 0.03})

	tiers, err := log.PerTier()
	if err != nil {
		t.Fatalf("PerTier: %v", err)
	}

	byTier := make(map[models.Tier]TierUsage)
	for _, tu := range tiers {
		byTier[tu.Tier] = tu
	}
	if byTier[models.TierChat].Calls != 1 {
		t.Errorf("chat calls = %d, want 1", byTier[models.TierChat].Calls)
	}
	if byTier[models.TierWorker].Calls != 2 {
		t.Errorf("worker calls = %d, want 2", byTier[models.TierWorker].Calls)
	}
}
