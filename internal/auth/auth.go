package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"case-reasons-training/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Credentials is what the entry form submits.
type Credentials struct {
	Name    string      `json:"name"`
	Country string      `json:"country"`
	Role    domain.Role `json:"role"`
	Secret  string      `json:"secret,omitempty"`
}

// Authenticator turns credentials into a player identity.
type Authenticator interface {
	Authenticate(creds Credentials) (domain.Player, error)
}

// Options configures the two-role gate.
type Options struct {
	// AdminSecretHash is a bcrypt hash. Empty disables the admin role.
	AdminSecretHash string
	Countries       []string
	RequireCountry  bool
}

// BcryptAuthenticator lets any named agent in and checks manager secrets
// against a bcrypt hash.
type BcryptAuthenticator struct {
	adminHash      []byte
	countries      []string
	requireCountry bool
}

func NewBcryptAuthenticator(opts Options) *BcryptAuthenticator {
	return &BcryptAuthenticator{
		adminHash:      []byte(opts.AdminSecretHash),
		countries:      slices.Clone(opts.Countries),
		requireCountry: opts.RequireCountry,
	}
}

func (a *BcryptAuthenticator) Authenticate(creds Credentials) (domain.Player, error) {
	name := strings.TrimSpace(creds.Name)
	country := strings.TrimSpace(creds.Country)
	if name == "" {
		return domain.Player{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if country == "" && a.requireCountry {
		return domain.Player{}, fmt.Errorf("%w: country is required", domain.ErrInvalidInput)
	}
	if country != "" && len(a.countries) > 0 && !slices.Contains(a.countries, country) {
		return domain.Player{}, fmt.Errorf("%w: unknown country %q", domain.ErrInvalidInput, country)
	}

	role := creds.Role
	if role == "" {
		role = domain.RoleAgent
	}
	switch role {
	case domain.RoleAgent:
	case domain.RoleAdmin:
		if err := a.checkAdmin(creds.Secret); err != nil {
			return domain.Player{}, err
		}
	default:
		return domain.Player{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	return domain.Player{Name: name, Country: country, Role: role}, nil
}

func (a *BcryptAuthenticator) checkAdmin(secret string) error {
	if len(a.adminHash) == 0 || secret == "" {
		return domain.ErrUnauthorized
	}
	err := bcrypt.CompareHashAndPassword(a.adminHash, []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return nil
}

// HashSecret produces the value for auth.admin_secret_hash.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: empty secret", domain.ErrInvalidInput)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// RequireAdmin fails unless player holds the admin role.
func RequireAdmin(player domain.Player) error {
	if player.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	return nil
}
