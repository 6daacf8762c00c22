package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

var now = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func TestRegister(t *testing.T) {
	r := New()

	iss, err := r.Register("0xaaa", "vc-hash", "ipfs-hash", now)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !iss.Active {
		t.Error("new issuer must be active")
	}
	if iss.Locked {
		t.Error("new issuer must not be locked")
	}

	if _, err := r.Register("0xaaa", "vc2", "ipfs2", now); !errors.Is(err, domain.ErrDuplicateIssuer) {
		t.Errorf("duplicate Register() error = %v, want ErrDuplicateIssuer", err)
	}
	if _, err := r.Register("", "vc", "ipfs", now); !errors.Is(err, domain.ErrZeroAddress) {
		t.Errorf("empty address Register() error = %v, want ErrZeroAddress", err)
	}
}

func TestCanLaunch(t *testing.T) {
	r := New()
	r.Register("0xaaa", "vc", "ipfs", now)

	if err := r.CanLaunch("0xaaa", now); err != nil {
		t.Errorf("fresh issuer CanLaunch() error = %v, want nil", err)
	}
	if err := r.CanLaunch("0xmissing", now); !errors.Is(err, domain.ErrUnknownIssuer) {
		t.Errorf("unregistered CanLaunch() error = %v, want ErrUnknownIssuer", err)
	}
}

func TestLockUnlock(t *testing.T) {
	r := New()
	r.Register("0xaaa", "vc", "ipfs", now)

	if err := r.Lock("0xaaa", "camp-1", now); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	iss, _ := r.Get("0xaaa")
	if !iss.Locked || iss.ActiveCampaign != "camp-1" {
		t.Errorf("after Lock: Locked=%v ActiveCampaign=%q", iss.Locked, iss.ActiveCampaign)
	}
	if iss.LastCampaignYear != now.Year() {
		t.Errorf("LastCampaignYear = %d, want %d", iss.LastCampaignYear, now.Year())
	}

	// exclusivity: a second lock always fails
	if err := r.Lock("0xaaa", "camp-2", now); !errors.Is(err, domain.ErrAlreadyLocked) {
		t.Errorf("second Lock() error = %v, want ErrAlreadyLocked", err)
	}
	if err := r.CanLaunch("0xaaa", now); !errors.Is(err, domain.ErrAlreadyLocked) {
		t.Errorf("locked CanLaunch() error = %v, want ErrAlreadyLocked", err)
	}

	if err := r.Unlock("0xaaa"); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := r.Unlock("0xaaa"); !errors.Is(err, domain.ErrNotLocked) {
		t.Errorf("second Unlock() error = %v, want ErrNotLocked", err)
	}
}

func TestOneCampaignPerYear(t *testing.T) {
	r := New()
	r.Register("0xaaa", "vc", "ipfs", now)
	r.Lock("0xaaa", "camp-1", now)
	r.Unlock("0xaaa")

	// unlocked, but the calendar-year rule still blocks a relaunch
	if err := r.CanLaunch("0xaaa", now.Add(24*time.Hour)); !errors.Is(err, domain.ErrIssuerNotEligible) {
		t.Errorf("same-year CanLaunch() error = %v, want ErrIssuerNotEligible", err)
	}

	nextYear := time.Date(now.Year()+1, 1, 2, 0, 0, 0, 0, time.UTC)
	if err := r.CanLaunch("0xaaa", nextYear); err != nil {
		t.Errorf("next-year CanLaunch() error = %v, want nil", err)
	}
}

func TestDeactivate(t *testing.T) {
	r := New()
	r.Register("0xaaa", "vc", "ipfs", now)
	r.Lock("0xaaa", "camp-1", now)

	iss, err := r.Deactivate("0xaaa")
	if err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if iss.Active || iss.Locked || iss.ActiveCampaign != "" {
		t.Errorf("after Deactivate: Active=%v Locked=%v ActiveCampaign=%q", iss.Active, iss.Locked, iss.ActiveCampaign)
	}
	if err := r.CanLaunch("0xaaa", now.AddDate(1, 0, 0)); !errors.Is(err, domain.ErrIssuerInactive) {
		t.Errorf("deactivated CanLaunch() error = %v, want ErrIssuerInactive", err)
	}
	if err := r.Lock("0xaaa", "camp-2", now); !errors.Is(err, domain.ErrIssuerInactive) {
		t.Errorf("Lock() on inactive error = %v, want ErrIssuerInactive", err)
	}
}

func TestUpdateDisclosure(t *testing.T) {
	r := New()
	r.Register("0xaaa", "vc", "ipfs-v1", now)

	if err := r.UpdateDisclosure("0xaaa", "ipfs-v2"); err != nil {
		t.Fatalf("UpdateDisclosure() error = %v", err)
	}
	iss, _ := r.Get("0xaaa")
	if iss.DisclosureHash != "ipfs-v2" {
		t.Errorf("DisclosureHash = %q, want %q", iss.DisclosureHash, "ipfs-v2")
	}
	if err := r.UpdateDisclosure("0xmissing", "x"); !errors.Is(err, domain.ErrUnknownIssuer) {
		t.Errorf("UpdateDisclosure() unknown error = %v, want ErrUnknownIssuer", err)
	}
}

func TestRestore(t *testing.T) {
	r := New()
	r.Restore([]domain.Issuer{
		{Address: "0xaaa", Active: true, Locked: true, ActiveCampaign: "camp-1", LastCampaignYear: 2026},
		{Address: "0xbbb", Active: false},
	})

	iss, err := r.Get("0xaaa")
	if err != nil {
		t.Fatalf("Get() after Restore error = %v", err)
	}
	if !iss.Locked || iss.ActiveCampaign != "camp-1" {
		t.Error("Restore must preserve lock state")
	}
	if err := r.CanLaunch("0xbbb", now); !errors.Is(err, domain.ErrIssuerInactive) {
		t.Errorf("restored inactive CanLaunch() error = %v, want ErrIssuerInactive", err)
	}
}
