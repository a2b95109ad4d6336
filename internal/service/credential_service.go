package service

import (
	"fmt"

	"github.com/stemsi/institute-portal/internal/config"
	"github.com/stemsi/institute-portal/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// defaultSecrets are development credentials. Override each with
// CREDENTIAL_<ROLE>_HASH in any real deployment.
var defaultSecrets = map[model.Role]string{
	model.RoleAuditor:          "1234",
	model.RoleAdmin:            "adminpass",
	model.RoleChancellor:       "chancellorpass",
	model.RoleViceChancellor:   "vcpass",
	model.RoleDirector:         "directorpass",
	model.RoleIQACCoordinators: "iqacpass",
}

// CredentialService maps each role to its bcrypt secret. It is read-only
// once constructed.
type CredentialService struct {
	hashes map[model.Role]string
}

// NewCredentialService hashes the built-in secrets and applies configured
// hash overrides.
func NewCredentialService(cfg *config.Config) (*CredentialService, error) {
	hashes := make(map[model.Role]string, len(model.AllRoles))
	for _, role := range model.AllRoles {
		if h, ok := cfg.CredentialHashes[string(role)]; ok {
			if _, err := bcrypt.Cost([]byte(h)); err != nil {
				return nil, fmt.Errorf("credential hash for %s: %w", role, err)
			}
			hashes[role] = h
			continue
		}

		secret, ok := defaultSecrets[role]
		if !ok {
			continue
		}
		h, err := bcrypt.GenerateFromPassword([]byte(secret), cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash credential for %s: %w", role, err)
		}
		hashes[role] = string(h)
	}
	return &CredentialService{hashes: hashes}, nil
}

// Lookup returns the stored secret hash for a role identifier. Unknown
// identifiers return false.
func (s *CredentialService) Lookup(loginBy string) (string, bool) {
	role, ok := model.ParseRole(loginBy)
	if !ok {
		return "", false
	}
	h, ok := s.hashes[role]
	return h, ok
}

// Verify reports whether password matches the secret configured for loginBy.
func (s *CredentialService) Verify(loginBy, password string) bool {
	h, ok := s.Lookup(loginBy)
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(h), []byte(password)) == nil
}
