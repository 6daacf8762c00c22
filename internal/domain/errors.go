package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Every error is a precondition failure: the whole call aborts with no state
// change. None are retried by the engine itself — retry is the caller's
// responsibility (a payout retry re-attempts only unpaid lines).

var (
	// Invalid input
	ErrZeroAmount         = errors.New("amount must be positive")
	ErrZeroAddress        = errors.New("address must not be empty")
	ErrEmptyID            = errors.New("id must not be empty")
	ErrInvalidGoal        = errors.New("funding goal out of regulatory bounds")
	ErrInvalidDuration    = errors.New("campaign duration out of bounds")
	ErrInvestmentTooSmall = errors.New("investment below campaign minimum")
	ErrInvestmentTooLarge = errors.New("investment above campaign maximum")

	// Not found
	ErrUnknownCampaign    = errors.New("campaign not found")
	ErrUnknownIssuer      = errors.New("issuer not found")
	ErrUnknownStake       = errors.New("no stake for campaign")
	ErrUnknownEscrow      = errors.New("no escrow account for campaign")
	ErrUnknownCertificate = errors.New("certificate not found")

	// State conflict
	ErrDuplicateIssuer       = errors.New("issuer already registered")
	ErrDuplicateCampaignID   = errors.New("campaign id already in use")
	ErrDuplicateEscrow       = errors.New("escrow account already open")
	ErrDuplicateStake        = errors.New("stake already open for campaign")
	ErrAlreadyLocked         = errors.New("issuer exclusivity already locked")
	ErrNotLocked             = errors.New("issuer exclusivity not locked")
	ErrIssuerInactive        = errors.New("issuer is deactivated")
	ErrIssuerNotEligible     = errors.New("issuer not eligible to launch a campaign")
	ErrAlreadyReleased       = errors.New("escrow funds already released")
	ErrAlreadyRefunded       = errors.New("escrow refund already completed")
	ErrAlreadySettled        = errors.New("escrow account already settled")
	ErrAlreadyHarvested      = errors.New("stake already harvested")
	ErrCampaignNotDraft      = errors.New("campaign is not in draft")
	ErrCampaignNotLive       = errors.New("campaign is not live")
	ErrCampaignNotSuccessful = errors.New("campaign is not successful")
	ErrCampaignNotFailed     = errors.New("campaign has not failed")
	ErrDeadlinePassed        = errors.New("campaign deadline has passed")
	ErrNoFunds               = errors.New("escrow holds no funds")
	ErrPoolInactive          = errors.New("yield pool is inactive")
	ErrNotTransferable       = errors.New("share certificates are not transferable")
	ErrCertificateRevoked    = errors.New("certificate has been revoked")

	// Authorization
	ErrUnauthorized = errors.New("caller not authorized for operation")

	// Transfer failure
	ErrPayoutFailed = errors.New("value transfer to recipient failed")
)
