package engine

import (
	"github.com/fundra-network/fundra/internal/domain"
)

// ─── Issuer Operations ──────────────────────────────────────────────────────

// RegisterIssuer registers an issuer. Registrar only.
func (e *Engine) RegisterIssuer(caller domain.Caller, addr, credentialHash, disclosureHash string) (domain.Issuer, error) {
	if !caller.Is(domain.RoleRegistrar) {
		return domain.Issuer{}, domain.ErrUnauthorized
	}

	is, err := e.registry.Register(addr, credentialHash, disclosureHash, e.now())
	if err != nil {
		return domain.Issuer{}, err
	}

	e.persistIssuer(addr)
	e.emit(domain.Event{
		Type:   domain.EventIssuerRegistered,
		Issuer: addr,
	})
	e.log.Info().Str("issuer", addr).Msg("issuer registered")
	return is, nil
}

// UpdateDisclosure replaces an issuer's disclosure document hash. The issuer
// itself or a registrar may call it.
func (e *Engine) UpdateDisclosure(caller domain.Caller, addr, newHash string) error {
	self := caller.Is(domain.RoleIssuer) && caller.Addr == addr
	if !self && !caller.Is(domain.RoleRegistrar) {
		return domain.ErrUnauthorized
	}

	if err := e.registry.UpdateDisclosure(addr, newHash); err != nil {
		return err
	}

	e.persistIssuer(addr)
	e.emit(domain.Event{
		Type:     domain.EventDisclosureUpdated,
		Issuer:   addr,
		Metadata: map[string]string{"disclosure_hash": newHash},
	})
	return nil
}

// DeactivateIssuer deactivates an issuer and clears any exclusivity lock.
// Registrar only. The issuer record survives for audit.
func (e *Engine) DeactivateIssuer(caller domain.Caller, addr string) (domain.Issuer, error) {
	if !caller.Is(domain.RoleRegistrar) {
		return domain.Issuer{}, domain.ErrUnauthorized
	}

	is, err := e.registry.Deactivate(addr)
	if err != nil {
		return domain.Issuer{}, err
	}

	e.persistIssuer(addr)
	e.emit(domain.Event{
		Type:   domain.EventIssuerDeactivated,
		Issuer: addr,
	})
	e.log.Info().Str("issuer", addr).Msg("issuer deactivated")
	return is, nil
}
