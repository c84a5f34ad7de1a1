package models

import "testing"

func TestTier_Valid(t *testing.T) {
	tests := []struct {
		name string
		tier Tier
		want bool
	}{
		{"chat is valid", TierChat, true},
		{"orchestrator is valid", TierOrchestrator, true},
		{"worker is valid", TierWorker, true},
		{"empty string is invalid", Tier(""), false},
		{"unknown tier is invalid", Tier("unknown"), false},
		{"uppercase is invalid", Tier("CHAT"), false},
		{"mixed case is invalid", Tier("Worker"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tier.Valid(); got != tt.want {
				t.Errorf("Tier(%q).Valid() = %v, want %v", tt.tier, got, tt.want)
			}
		})
	}
}

func TestTier_StringValues(t *testing.T) {
	// Verify the string values are as expected
	tests := []struct {
		tier Tier
		want string
	}{
		{TierChat, "chat"},
		{TierOrchestrator, "orchestrator"},
		{TierWorker, "worker"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := string(tt.tier); got != tt.want {
				t.Errorf("string(Tier) = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTier_AllTiersAreDistinct(t *testing.T) {
	tiers := []Tier{
		TierChat,
		TierOrchestrator,
		TierWorker,
	}

	seen := make(map[Tier]bool)
	for _, tier := range tiers {
		if seen[tier] {
			t.Errorf("Duplicate Tier: %q", tier)
		}
		seen[tier] = true
	}

	if len(seen) != 3 {
		t.Errorf("Expected 3 distinct Tier values, got %d", len(seen))
	}
}
