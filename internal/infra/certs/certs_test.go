package certs

import (
	"errors"
	"testing"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

var t0 = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func successfulCampaign() domain.Campaign {
	return domain.Campaign{
		ID:          "c1",
		Issuer:      "0xissuer",
		CompanyName: "Andromeda Farms",
		Goal:        1_000,
		State:       domain.StateSuccessful,
	}
}

func TestIssueAll(t *testing.T) {
	b := New(DefaultConfig())

	out, err := b.IssueAll(successfulCampaign(), []Holding{
		{Investor: "0xa", Amount: 400},
		{Investor: "0xb", Amount: 350},
		{Investor: "0xzero", Amount: 0}, // skipped: nonzero investment only
	}, t0)
	if err != nil {
		t.Fatalf("IssueAll() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("issued %d certificates, want 2", len(out))
	}

	// basis-point scaled share counts against goal 1000
	byOwner := map[string]domain.ShareCertificate{}
	for _, c := range out {
		byOwner[c.Owner] = c
	}
	if byOwner["0xa"].ShareCount != 400 || byOwner["0xb"].ShareCount != 350 {
		t.Errorf("share counts = %d, %d; want 400, 350",
			byOwner["0xa"].ShareCount, byOwner["0xb"].ShareCount)
	}
	// voting power floor of 1 below the voting unit
	if byOwner["0xa"].VotingPower != 1 || byOwner["0xb"].VotingPower != 1 {
		t.Errorf("voting powers = %d, %d; want 1, 1",
			byOwner["0xa"].VotingPower, byOwner["0xb"].VotingPower)
	}
	for _, c := range out {
		if c.TokenID == "" || !c.Active {
			t.Errorf("certificate %+v missing token id or inactive", c)
		}
		if c.CompanyName != "Andromeda Farms" {
			t.Errorf("CompanyName = %q", c.CompanyName)
		}
	}
}

func TestIssueAll_Idempotent(t *testing.T) {
	b := New(DefaultConfig())
	holdings := []Holding{{Investor: "0xa", Amount: 400}, {Investor: "0xb", Amount: 350}}

	first, _ := b.IssueAll(successfulCampaign(), holdings, t0)
	second, err := b.IssueAll(successfulCampaign(), holdings, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("second IssueAll() error = %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second IssueAll() minted %d new certificates, want 0", len(second))
	}
	if got := b.ByCampaign("c1"); len(got) != len(first) {
		t.Errorf("ByCampaign() = %d certificates, want %d", len(got), len(first))
	}

	// a new holder appearing later still gets exactly one certificate
	third, _ := b.IssueAll(successfulCampaign(), append(holdings, Holding{Investor: "0xc", Amount: 100}), t0.Add(2*time.Hour))
	if len(third) != 1 || third[0].Owner != "0xc" {
		t.Errorf("third IssueAll() = %+v, want single cert for 0xc", third)
	}
}

func TestTransfer_AlwaysRejected(t *testing.T) {
	b := New(DefaultConfig())
	out, _ := b.IssueAll(successfulCampaign(), []Holding{{Investor: "0xa", Amount: 400}}, t0)

	if err := b.Transfer(out[0].TokenID, "0xa", "0xb"); !errors.Is(err, domain.ErrNotTransferable) {
		t.Errorf("Transfer() error = %v, want ErrNotTransferable", err)
	}
}

func TestRevoke(t *testing.T) {
	b := New(DefaultConfig())
	out, _ := b.IssueAll(successfulCampaign(), []Holding{{Investor: "0xa", Amount: 400}}, t0)
	id := out[0].TokenID

	c, err := b.Revoke(id, "court order", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if c.Active {
		t.Error("revoked certificate must be inactive")
	}
	if _, err := b.Revoke(id, "again", t0); !errors.Is(err, domain.ErrCertificateRevoked) {
		t.Errorf("double Revoke() error = %v, want ErrCertificateRevoked", err)
	}
	if _, err := b.Revoke("missing", "", t0); !errors.Is(err, domain.ErrUnknownCertificate) {
		t.Errorf("Revoke() unknown error = %v", err)
	}
}

func TestReissue(t *testing.T) {
	b := New(DefaultConfig())
	out, _ := b.IssueAll(successfulCampaign(), []Holding{{Investor: "0xa", Amount: 400}}, t0)
	oldID := out[0].TokenID

	c, err := b.Reissue(oldID, "0xheir", "estate settlement", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Reissue() error = %v", err)
	}
	if c.Owner != "0xheir" || c.ShareCount != 400 || !c.Active {
		t.Errorf("reissued certificate = %+v", c)
	}
	if c.TokenID == oldID {
		t.Error("reissue must mint a fresh token id")
	}

	old, _ := b.Get(oldID)
	if old.Active {
		t.Error("original certificate must be revoked by reissue")
	}

	hist := b.History()
	if len(hist) != 1 || hist[0].From != "0xa" || hist[0].To != "0xheir" {
		t.Errorf("History() = %+v", hist)
	}

	// a revoked certificate cannot be reissued again
	if _, err := b.Reissue(oldID, "0xother", "", t0); !errors.Is(err, domain.ErrCertificateRevoked) {
		t.Errorf("Reissue() of revoked error = %v, want ErrCertificateRevoked", err)
	}
}

func TestByOwner(t *testing.T) {
	b := New(DefaultConfig())
	b.IssueAll(successfulCampaign(), []Holding{
		{Investor: "0xa", Amount: 400},
		{Investor: "0xb", Amount: 350},
	}, t0)

	if got := b.ByOwner("0xa"); len(got) != 1 || got[0].Owner != "0xa" {
		t.Errorf("ByOwner(0xa) = %+v", got)
	}
	if got := b.ByOwner("0xnobody"); len(got) != 0 {
		t.Errorf("ByOwner(nobody) = %+v, want empty", got)
	}
}

func TestRestore(t *testing.T) {
	b := New(DefaultConfig())
	b.Restore([]domain.ShareCertificate{
		{TokenID: "tok-1", CampaignID: "c1", Owner: "0xa", InvestmentAmount: 400, ShareCount: 400, VotingPower: 1, Active: true},
	}, nil)

	c, err := b.Get("tok-1")
	if err != nil || c.Owner != "0xa" {
		t.Fatalf("Get() after Restore = %+v, %v", c, err)
	}

	// idempotency survives restart: the restored holder is not re-issued
	out, _ := b.IssueAll(domain.Campaign{ID: "c1", Goal: 1_000, State: domain.StateSuccessful},
		[]Holding{{Investor: "0xa", Amount: 400}}, t0)
	if len(out) != 0 {
		t.Errorf("IssueAll() after Restore minted %d, want 0", len(out))
	}
}
