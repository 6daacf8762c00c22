package events

import (
	"testing"
	"time"

	"github.com/fundra-network/fundra/internal/domain"
)

func ev(id string, t domain.EventType) domain.Event {
	return domain.Event{ID: id, Type: t, Timestamp: time.Now().UTC()}
}

func TestPublishAndRecent(t *testing.T) {
	l := NewLog(100)

	l.Publish(ev("1", domain.EventCampaignCreated))
	l.Publish(ev("2", domain.EventCampaignLaunched))
	l.Publish(ev("3", domain.EventInvestmentRecorded))

	got := l.Recent(2)
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d events", len(got))
	}
	if got[0].ID != "2" || got[1].ID != "3" {
		t.Errorf("Recent order = %q, %q; want 2, 3", got[0].ID, got[1].ID)
	}
	if l.Total() != 3 {
		t.Errorf("Total() = %d, want 3", l.Total())
	}
}

func TestRingEviction(t *testing.T) {
	l := NewLog(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		l.Publish(ev(id, domain.EventYieldCompounded))
	}

	got := l.Recent(0)
	if len(got) != 3 {
		t.Fatalf("buffer holds %d events, want 3", len(got))
	}
	if got[0].ID != "b" || got[2].ID != "d" {
		t.Errorf("oldest/newest = %q/%q, want b/d", got[0].ID, got[2].ID)
	}
	if l.Total() != 4 {
		t.Errorf("Total() = %d, want 4", l.Total())
	}
}

func TestSubscribeAndCancel(t *testing.T) {
	l := NewLog(10)

	var seen []string
	cancel := l.Subscribe(func(e domain.Event) {
		seen = append(seen, e.ID)
	})

	l.Publish(ev("1", domain.EventIssuerRegistered))
	l.Publish(ev("2", domain.EventIssuerRegistered))
	cancel()
	l.Publish(ev("3", domain.EventIssuerRegistered))

	if len(seen) != 2 {
		t.Fatalf("handler saw %d events, want 2", len(seen))
	}
	if seen[0] != "1" || seen[1] != "2" {
		t.Errorf("handler order = %v, want [1 2]", seen)
	}
}

func TestMultipleSubscribers(t *testing.T) {
	l := NewLog(10)

	var a, b int
	l.Subscribe(func(domain.Event) { a++ })
	l.Subscribe(func(domain.Event) { b++ })

	l.Publish(ev("1", domain.EventFundsReleased))

	if a != 1 || b != 1 {
		t.Errorf("deliveries = %d, %d; want 1, 1", a, b)
	}
}
