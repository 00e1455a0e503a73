package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/portalauth/internal/auth/service"
	"github.com/aussiebroadwan/portalauth/pkg/jwtx"
)

// issuerConfig turns the signing configuration into signers. Key ids are
// derived from the key material, so the same secret or key file always gets
// the same kid across restarts and replicas.
func issuerConfig(cfg Config, logger *slog.Logger) (service.IssuerConfig, error) {
	access, err := signingProfile("access", cfg.Access)
	if err != nil {
		return service.IssuerConfig{}, err
	}
	refresh, err := signingProfile("refresh", cfg.Refresh)
	if err != nil {
		return service.IssuerConfig{}, err
	}

	for name, p := range map[string]service.SigningProfile{"access": access, "refresh": refresh} {
		logger.Info("signing key loaded",
			"type", name,
			"algorithm", p.Signer.Alg(),
			"kid", p.Signer.KID(),
			"previous_keys", len(p.Previous),
			"ttl", p.TTL,
		)
	}

	return service.IssuerConfig{
		Access:   access,
		Refresh:  refresh,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
	}, nil
}

func signingProfile(typ string, sc SigningConfig) (service.SigningProfile, error) {
	current, err := loadSigner(sc.Algorithm, sc.Secret, sc.KeyFile)
	if err != nil {
		return service.SigningProfile{}, fmt.Errorf("%s signing key: %w", typ, err)
	}

	p := service.SigningProfile{Signer: current, TTL: sc.TTL}
	for i, secret := range sc.PreviousSecrets {
		s, err := loadSigner(sc.Algorithm, secret, "")
		if err != nil {
			return service.SigningProfile{}, fmt.Errorf("%s previous secret %d: %w", typ, i, err)
		}
		p.Previous = append(p.Previous, s)
	}
	for _, path := range sc.PreviousKeyFiles {
		s, err := loadSigner(sc.Algorithm, "", path)
		if err != nil {
			return service.SigningProfile{}, fmt.Errorf("%s previous key %s: %w", typ, path, err)
		}
		p.Previous = append(p.Previous, s)
	}
	return p, nil
}

func loadSigner(alg, secret, keyFile string) (jwtx.Signer, error) {
	material := []byte(secret)
	if keyFile != "" {
		raw, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		material = raw
	}

	s, err := jwtx.NewSigner(alg, "", material)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
