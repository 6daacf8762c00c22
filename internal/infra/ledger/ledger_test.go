package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func newLive(t *testing.T, l *Ledger, id string, goal int64) domain.Campaign {
	t.Helper()
	if _, err := l.Create(CreateParams{
		ID: id, Issuer: "0xissuer", Goal: goal, MinInvestment: 1,
		Duration: 30 * 24 * time.Hour,
	}, t0); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	c, err := l.Launch(id, t0)
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	return c
}

func TestCreate_Validation(t *testing.T) {
	l := New(DefaultConfig())

	tests := []struct {
		name    string
		p       CreateParams
		wantErr error
	}{
		{"empty id", CreateParams{Issuer: "0xi", Goal: 5000, Duration: time.Hour}, domain.ErrEmptyID},
		{"empty issuer", CreateParams{ID: "c1", Goal: 5000, Duration: time.Hour}, domain.ErrZeroAddress},
		{"zero goal", CreateParams{ID: "c1", Issuer: "0xi", Goal: 0, Duration: time.Hour}, domain.ErrInvalidGoal},
		{"goal below minimum", CreateParams{ID: "c1", Issuer: "0xi", Goal: 999, Duration: time.Hour}, domain.ErrInvalidGoal},
		{"goal above ceiling", CreateParams{ID: "c1", Issuer: "0xi", Goal: 50_000_001, Duration: time.Hour}, domain.ErrInvalidGoal},
		{"zero duration", CreateParams{ID: "c1", Issuer: "0xi", Goal: 5000}, domain.ErrInvalidDuration},
		{"duration above window", CreateParams{ID: "c1", Issuer: "0xi", Goal: 5000, Duration: 181 * 24 * time.Hour}, domain.ErrInvalidDuration},
		{"valid", CreateParams{ID: "c1", Issuer: "0xi", Goal: 5000, Duration: 30 * 24 * time.Hour}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Create(tt.p, t0)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// duplicate id
	if _, err := l.Create(CreateParams{ID: "c1", Issuer: "0xi", Goal: 5000, Duration: time.Hour}, t0); !errors.Is(err, domain.ErrDuplicateCampaignID) {
		t.Errorf("duplicate Create() error = %v, want ErrDuplicateCampaignID", err)
	}
}

func TestLaunch(t *testing.T) {
	l := New(DefaultConfig())
	l.Create(CreateParams{ID: "c1", Issuer: "0xi", Goal: 5000, Duration: 30 * 24 * time.Hour}, t0)

	c, err := l.Launch("c1", t0)
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if c.State != domain.StateLive {
		t.Errorf("State = %s, want LIVE", c.State)
	}
	if !c.Deadline.Equal(t0.Add(30 * 24 * time.Hour)) {
		t.Errorf("Deadline = %v, want start+30d", c.Deadline)
	}

	if _, err := l.Launch("c1", t0); !errors.Is(err, domain.ErrCampaignNotDraft) {
		t.Errorf("second Launch() error = %v, want ErrCampaignNotDraft", err)
	}
	if _, err := l.Launch("missing", t0); !errors.Is(err, domain.ErrUnknownCampaign) {
		t.Errorf("Launch() unknown error = %v, want ErrUnknownCampaign", err)
	}
}

func TestRecordInvestment(t *testing.T) {
	l := New(DefaultConfig())
	newLive(t, l, "c1", 10_000)

	_, first, err := l.RecordInvestment("c1", "0xa", 400, domain.PayCrypto, "tx1", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("RecordInvestment() error = %v", err)
	}
	if !first {
		t.Error("first deposit must report first=true")
	}

	// accumulation: same investor again
	_, first, err = l.RecordInvestment("c1", "0xa", 600, domain.PayTelebirr, "tx2", t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("RecordInvestment() error = %v", err)
	}
	if first {
		t.Error("second deposit must report first=false")
	}

	c, _ := l.Get("c1")
	if c.TotalRaised != 1000 {
		t.Errorf("TotalRaised = %d, want 1000", c.TotalRaised)
	}
	if c.InvestorCount != 1 {
		t.Errorf("InvestorCount = %d, want 1", c.InvestorCount)
	}
	bal, _ := l.InvestmentOf("c1", "0xa")
	if bal != 1000 {
		t.Errorf("InvestmentOf = %d, want 1000", bal)
	}

	log, _ := l.Log("c1")
	if len(log) != 2 {
		t.Fatalf("log length = %d, want 2", len(log))
	}

	// conservation: totalRaised == Σ investments.amount
	var sum int64
	for _, line := range log {
		sum += line.Amount
	}
	if sum != c.TotalRaised {
		t.Errorf("Σ log = %d, TotalRaised = %d", sum, c.TotalRaised)
	}
}

func TestRecordInvestment_Preconditions(t *testing.T) {
	l := New(DefaultConfig())
	l.Create(CreateParams{ID: "bounded", Issuer: "0xi", Goal: 10_000, MinInvestment: 100, MaxInvestment: 5_000, Duration: 24 * time.Hour}, t0)
	l.Launch("bounded", t0)
	l.Create(CreateParams{ID: "draft", Issuer: "0xi", Goal: 10_000, Duration: 24 * time.Hour}, t0)

	tests := []struct {
		name     string
		id       string
		investor string
		amount   int64
		at       time.Time
		wantErr  error
	}{
		{"zero amount", "bounded", "0xa", 0, t0, domain.ErrZeroAmount},
		{"negative amount", "bounded", "0xa", -5, t0, domain.ErrZeroAmount},
		{"empty investor", "bounded", "", 500, t0, domain.ErrZeroAddress},
		{"unknown campaign", "nope", "0xa", 500, t0, domain.ErrUnknownCampaign},
		{"not live", "draft", "0xa", 500, t0, domain.ErrCampaignNotLive},
		{"past deadline", "bounded", "0xa", 500, t0.Add(25 * time.Hour), domain.ErrDeadlinePassed},
		{"below minimum", "bounded", "0xa", 50, t0, domain.ErrInvestmentTooSmall},
		{"above maximum", "bounded", "0xa", 6_000, t0, domain.ErrInvestmentTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := l.RecordInvestment(tt.id, tt.investor, tt.amount, domain.PayOther, "", tt.at)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RecordInvestment() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvaluateCompletion_Threshold(t *testing.T) {
	l := New(DefaultConfig())
	newLive(t, l, "c1", 1_000)

	// 749 of 1000 (threshold 750) stays Live
	l.RecordInvestment("c1", "0xa", 749, domain.PayCrypto, "", t0.Add(time.Hour))
	tr, err := l.EvaluateCompletion("c1", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("EvaluateCompletion() error = %v", err)
	}
	if tr.Changed {
		t.Errorf("749/1000 transitioned to %s, want still LIVE", tr.To)
	}

	// reaching 750 transitions on the very next evaluation
	l.RecordInvestment("c1", "0xb", 1, domain.PayCrypto, "", t0.Add(2*time.Hour))
	tr, _ = l.EvaluateCompletion("c1", t0.Add(2*time.Hour))
	if !tr.Changed || tr.To != domain.StateSuccessful {
		t.Errorf("750/1000 transition = %+v, want → SUCCESSFUL", tr)
	}

	// idempotent on terminal state
	tr, _ = l.EvaluateCompletion("c1", t0.Add(3*time.Hour))
	if tr.Changed {
		t.Error("evaluation on terminal campaign must not transition again")
	}
}

func TestEvaluateCompletion_DeadlineFailure(t *testing.T) {
	l := New(DefaultConfig())
	c := newLive(t, l, "c1", 1_000)
	l.RecordInvestment("c1", "0xa", 300, domain.PayCrypto, "", t0.Add(time.Hour))

	// before deadline: no change
	tr, _ := l.EvaluateCompletion("c1", c.Deadline)
	if tr.Changed {
		t.Error("evaluation at deadline must not fail the campaign yet")
	}

	tr, _ = l.EvaluateCompletion("c1", c.Deadline.Add(time.Second))
	if !tr.Changed || tr.To != domain.StateFailed {
		t.Errorf("past-deadline transition = %+v, want → FAILED", tr)
	}
}

func TestEvaluateCompletion_LiveForever(t *testing.T) {
	// A campaign under threshold whose deadline never arrives stays Live.
	l := New(DefaultConfig())
	newLive(t, l, "c1", 1_000)
	l.RecordInvestment("c1", "0xa", 100, domain.PayCrypto, "", t0.Add(time.Hour))

	for i := 1; i < 20; i++ {
		tr, _ := l.EvaluateCompletion("c1", t0.Add(time.Duration(i)*24*time.Hour))
		if tr.Changed {
			t.Fatalf("campaign transitioned at day %d before deadline", i)
		}
	}
}

func TestRefundMarking(t *testing.T) {
	l := New(DefaultConfig())
	newLive(t, l, "c1", 1_000)
	l.RecordInvestment("c1", "0xa", 200, domain.PayCrypto, "", t0.Add(time.Hour))
	l.RecordInvestment("c1", "0xb", 100, domain.PayCrypto, "", t0.Add(2*time.Hour))

	lines, _ := l.UnrefundedLines("c1")
	if len(lines) != 2 {
		t.Fatalf("UnrefundedLines = %d, want 2", len(lines))
	}

	if _, err := l.MarkRefunded("c1", lines[0], t0.Add(3*time.Hour)); err != nil {
		t.Fatalf("MarkRefunded() error = %v", err)
	}
	// marking the same line twice fails
	if _, err := l.MarkRefunded("c1", lines[0], t0.Add(3*time.Hour)); !errors.Is(err, domain.ErrAlreadyRefunded) {
		t.Errorf("double MarkRefunded() error = %v, want ErrAlreadyRefunded", err)
	}

	lines, _ = l.UnrefundedLines("c1")
	if len(lines) != 1 {
		t.Errorf("UnrefundedLines after mark = %d, want 1", len(lines))
	}
}

func TestBeginRefunding(t *testing.T) {
	l := New(DefaultConfig())
	c := newLive(t, l, "c1", 1_000)
	l.RecordInvestment("c1", "0xa", 100, domain.PayCrypto, "", t0.Add(time.Hour))
	l.EvaluateCompletion("c1", c.Deadline.Add(time.Second))

	got, err := l.BeginRefunding("c1")
	if err != nil {
		t.Fatalf("BeginRefunding() error = %v", err)
	}
	if got.State != domain.StateRefunding {
		t.Errorf("State = %s, want REFUNDING", got.State)
	}
	// idempotent once refunding
	if _, err := l.BeginRefunding("c1"); err != nil {
		t.Errorf("repeat BeginRefunding() error = %v", err)
	}

	// a successful campaign cannot enter refunding
	l2 := New(DefaultConfig())
	newLive(t, l2, "ok", 1_000)
	l2.RecordInvestment("ok", "0xa", 800, domain.PayCrypto, "", t0.Add(time.Hour))
	l2.EvaluateCompletion("ok", t0.Add(time.Hour))
	if _, err := l2.BeginRefunding("ok"); !errors.Is(err, domain.ErrCampaignNotFailed) {
		t.Errorf("BeginRefunding() on successful error = %v, want ErrCampaignNotFailed", err)
	}
}

func TestInvestorsOrder(t *testing.T) {
	l := New(DefaultConfig())
	newLive(t, l, "c1", 10_000)
	l.RecordInvestment("c1", "0xb", 100, domain.PayCrypto, "", t0.Add(time.Hour))
	l.RecordInvestment("c1", "0xa", 100, domain.PayCrypto, "", t0.Add(2*time.Hour))
	l.RecordInvestment("c1", "0xb", 100, domain.PayCrypto, "", t0.Add(3*time.Hour))

	got, _ := l.Investors("c1")
	want := []string{"0xb", "0xa"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Investors() = %v, want %v", got, want)
	}
}

func TestRestore(t *testing.T) {
	l := New(DefaultConfig())
	headers := []domain.Campaign{{
		ID: "c1", Issuer: "0xi", Goal: 1_000, State: domain.StateLive,
		StartTime: t0, Deadline: t0.Add(24 * time.Hour), TotalRaised: 300, InvestorCount: 2,
	}}
	invs := []domain.Investment{
		{CampaignID: "c1", Investor: "0xa", Amount: 200, Timestamp: t0},
		{CampaignID: "c1", Investor: "0xb", Amount: 100, Timestamp: t0},
	}
	l.Restore(headers, invs)

	bal, err := l.InvestmentOf("c1", "0xa")
	if err != nil || bal != 200 {
		t.Errorf("InvestmentOf after Restore = %d, %v; want 200, nil", bal, err)
	}
	order, _ := l.Investors("c1")
	if len(order) != 2 || order[0] != "0xa" {
		t.Errorf("Investors after Restore = %v", order)
	}
	// restored state machine still works
	tr, _ := l.EvaluateCompletion("c1", t0.Add(25*time.Hour))
	if !tr.Changed || tr.To != domain.StateFailed {
		t.Errorf("post-restore evaluation = %+v, want → FAILED", tr)
	}
}
