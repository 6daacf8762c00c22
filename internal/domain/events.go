package domain

import (
	"encoding/json"
	"time"
)

// ─── Engine Events ──────────────────────────────────────────────────────────
// Every state-mutating operation emits a structured event. Events are the
// sole channel through which external mirrors observe state changes: they
// carry enough data to reconstruct current state without re-querying, and
// form an at-least-once, ordered-per-campaign log.

// EventType classifies an engine event.
type EventType string

const (
	EventIssuerRegistered     EventType = "issuer.registered"
	EventIssuerDeactivated    EventType = "issuer.deactivated"
	EventDisclosureUpdated    EventType = "issuer.disclosure_updated"
	EventCampaignCreated      EventType = "campaign.created"
	EventCampaignLaunched     EventType = "campaign.launched"
	EventInvestmentRecorded   EventType = "campaign.investment_recorded"
	EventCampaignStateChanged EventType = "campaign.state_changed"
	EventFundsReleased        EventType = "escrow.funds_released"
	EventRefundProcessed      EventType = "escrow.refund_processed"
	EventYieldStaked          EventType = "yield.staked"
	EventYieldCompounded      EventType = "yield.compounded"
	EventYieldHarvested       EventType = "yield.harvested"
	EventCertificateIssued    EventType = "certificate.issued"
	EventCertificateRevoked   EventType = "certificate.revoked"
	EventCertificateReissued  EventType = "certificate.reissued"
)

// Event is one structured engine event.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	CampaignID string            `json:"campaign_id,omitempty"`
	Issuer     string            `json:"issuer,omitempty"`
	Investor   string            `json:"investor,omitempty"`
	Amount     int64             `json:"amount,omitempty"`
	Yield      int64             `json:"yield,omitempty"`
	State      CampaignState     `json:"state,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// String returns the JSON form, used for journaling and the live feed.
func (e Event) String() string {
	data, _ := json.Marshal(e)
	return string(data)
}
