package service

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const passwordSpecialChars = `!@#$%^&*(),.?":{}|<>`

// PasswordPolicy hashes and verifies passwords and enforces strength
// rules. The bcrypt cost is tuned so verification takes on the order of
// 100ms on commodity hardware.
type PasswordPolicy struct {
	cost int
}

func NewPasswordPolicy(cost int) *PasswordPolicy {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = 12
	}
	return &PasswordPolicy{cost: cost}
}

func (p *PasswordPolicy) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify returns false for a nil hash: a credential record with no
// password set is unauthenticatable, not an error.
func (p *PasswordPolicy) Verify(password string, hash *string) bool {
	if hash == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil
}

// ValidateStrength checks the rules in fixed order; the first failure
// wins and its reason is returned verbatim to the client.
func (p *PasswordPolicy) ValidateStrength(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters long"
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if strings.ContainsRune(passwordSpecialChars, r) {
			hasSpecial = true
		}
	}

	if !hasUpper {
		return false, "Password must contain at least one uppercase letter"
	}
	if !hasLower {
		return false, "Password must contain at least one lowercase letter"
	}
	if !hasDigit {
		return false, "Password must contain at least one number"
	}
	if !hasSpecial {
		return false, "Password must contain at least one special character"
	}

	return true, ""
}
