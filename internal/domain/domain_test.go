package domain

import (
	"testing"
	"time"
)

// ─── State Machine Tests ────────────────────────────────────────────────────

func TestCampaignState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from CampaignState
		to   CampaignState
		want bool
	}{
		{"draft to live", StateDraft, StateLive, true},
		{"live to successful", StateLive, StateSuccessful, true},
		{"live to failed", StateLive, StateFailed, true},
		{"failed to refunding", StateFailed, StateRefunding, true},
		{"draft to successful skips live", StateDraft, StateSuccessful, false},
		{"successful back to live", StateSuccessful, StateLive, false},
		{"successful to refunding", StateSuccessful, StateRefunding, false},
		{"refunding anywhere", StateRefunding, StateLive, false},
		{"live back to draft", StateLive, StateDraft, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s → %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCampaignState_Terminal(t *testing.T) {
	if StateDraft.Terminal() || StateLive.Terminal() {
		t.Error("Draft/Live must not be terminal")
	}
	if !StateSuccessful.Terminal() || !StateFailed.Terminal() || !StateRefunding.Terminal() {
		t.Error("Successful/Failed/Refunding must be terminal")
	}
}

// ─── Campaign Math Tests ────────────────────────────────────────────────────

func TestCampaign_Threshold(t *testing.T) {
	c := Campaign{Goal: 1000}
	if got := c.Threshold(7500); got != 750 {
		t.Errorf("Threshold(7500) = %d, want 750", got)
	}
}

func TestCampaign_ProgressBasisPoints(t *testing.T) {
	tests := []struct {
		name   string
		goal   int64
		raised int64
		want   int64
	}{
		{"zero goal", 0, 100, 0},
		{"half", 1000, 500, 5000},
		{"full", 1000, 1000, 10000},
		{"over goal", 1000, 1500, 15000},
		{"rounds down", 3, 1, 3333},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Campaign{Goal: tt.goal, TotalRaised: tt.raised}
			if got := c.ProgressBasisPoints(); got != tt.want {
				t.Errorf("ProgressBasisPoints() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCampaign_TimeRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Campaign{State: StateLive, Deadline: now.Add(time.Hour)}
	if got := c.TimeRemaining(now); got != time.Hour {
		t.Errorf("TimeRemaining() = %v, want 1h", got)
	}
	if got := c.TimeRemaining(now.Add(2 * time.Hour)); got != 0 {
		t.Errorf("TimeRemaining() after deadline = %v, want 0", got)
	}
	draft := Campaign{State: StateDraft}
	if got := draft.TimeRemaining(now); got != 0 {
		t.Errorf("TimeRemaining() on draft = %v, want 0", got)
	}
}

// ─── Certificate Math Tests ─────────────────────────────────────────────────

func TestShareCount(t *testing.T) {
	tests := []struct {
		amount, goal int64
		want         int64
	}{
		{400, 1000, 400},
		{350, 1000, 350},
		{1, 1000, 1},
		{0, 1000, 0},
		{500, 0, 0},
	}
	for _, tt := range tests {
		if got := ShareCount(tt.amount, tt.goal, 1000); got != tt.want {
			t.Errorf("ShareCount(%d, %d, 1000) = %d, want %d", tt.amount, tt.goal, got, tt.want)
		}
	}
}

func TestVotingPower_MonotonicWithFloor(t *testing.T) {
	tests := []struct {
		amount int64
		want   int64
	}{
		{0, 0},
		{1, 1}, // floor of 1 for any nonzero investment
		{999, 1},
		{1000, 1},
		{1999, 1},
		{2000, 2},
		{10500, 10},
	}
	for _, tt := range tests {
		if got := VotingPower(tt.amount, 1000); got != tt.want {
			t.Errorf("VotingPower(%d, 1000) = %d, want %d", tt.amount, got, tt.want)
		}
	}

	// monotonicity: a < b ⇒ power(a) <= power(b)
	prev := int64(0)
	for amt := int64(1); amt <= 5000; amt += 7 {
		p := VotingPower(amt, 1000)
		if p < prev {
			t.Fatalf("VotingPower not monotonic at amount %d: %d < %d", amt, p, prev)
		}
		prev = p
	}
}

// ─── Utility Tests ──────────────────────────────────────────────────────────

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		units int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{123456, "1234.56"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.units); got != tt.want {
			t.Errorf("FormatAmount(%d) = %q, want %q", tt.units, got, tt.want)
		}
	}
}

func TestCaller_Is(t *testing.T) {
	admin := Caller{Addr: "0xadmin", Role: RoleAdmin}
	if !admin.Is(RoleRegistrar) || !admin.Is(RoleOperator) {
		t.Error("admin must imply every role")
	}
	reg := Caller{Addr: "0xreg", Role: RoleRegistrar}
	if !reg.Is(RoleRegistrar) {
		t.Error("registrar must match registrar")
	}
	if reg.Is(RoleOperator) {
		t.Error("registrar must not match operator")
	}
}
