package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"

	"github.com/example/rota-parceira/internal/models"
	"github.com/example/rota-parceira/internal/roster"
)

// The verification collaborator is mocked: any well-formed phone and code
// pair succeeds. Real SMS/WhatsApp delivery is out of scope.

var (
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrInvalidCode  = errors.New("invalid confirmation code")
)

const (
	minPhoneDigits = 10
	minCodeLength  = 4
)

// ValidatePhone requires at least 10 digits after stripping formatting.
func ValidatePhone(phone string) error {
	if len(digitsOf(phone)) < minPhoneDigits {
		return ErrInvalidPhone
	}
	return nil
}

func ValidateCode(code string) error {
	if len(strings.TrimSpace(code)) < minCodeLength {
		return ErrInvalidCode
	}
	return nil
}

// Verify resolves a phone/code pair to an identity. Known passengers and
// drivers match by phone; the reserved admin literal yields the
// administrator; anything else mints a new level-1 passenger, which the
// caller must add to the roster.
func Verify(r roster.Roster, phone, code string) (models.User, *models.Passenger, error) {
	if err := ValidatePhone(phone); err != nil {
		return models.User{}, nil, err
	}
	if err := ValidateCode(code); err != nil {
		return models.User{}, nil, err
	}
	digits := digitsOf(phone)

	if p, ok := r.PassengerByPhone(digits); ok {
		return p.User, nil, nil
	}
	if d, ok := r.DriverByPhone(digits); ok {
		return d.User, nil, nil
	}
	if digits == roster.AdminPhone {
		return models.User{
			ID:           "admin_user",
			Name:         "Admin",
			Phone:        roster.AdminPhone,
			Role:         models.RoleAdmin,
			Rating:       5,
			ProfileLevel: models.Level3,
		}, nil, nil
	}

	minted := models.Passenger{
		User: models.User{
			ID:           "user_" + newID(),
			Name:         "Novo Usuário",
			Phone:        digits,
			Role:         models.RolePassenger,
			Rating:       5.0,
			ProfileLevel: models.Level1,
		},
		Location: roster.DefaultPassengerLocation,
	}
	return minted.User, &minted, nil
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
