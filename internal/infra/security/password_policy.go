package security

import (
	"fmt"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	// zxcvbn scores range 0..4; 2 rejects trivially guessable passwords
	// without demanding passphrase-grade entropy from admin operators.
	minPasswordScore = 2
)

// PasswordPolicyError represents a single password policy violation.
type PasswordPolicyError struct {
	Code    string
	Message string
}

// Error implements error for PasswordPolicyError.
func (e *PasswordPolicyError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordPolicy validates passwords set through the admin panel.
type PasswordPolicy struct {
	minLength int
	maxLength int
	minScore  int
}

// NewPasswordPolicy constructs the default policy.
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		minLength: minPasswordLength,
		maxLength: maxPasswordLength,
		minScore:  minPasswordScore,
	}
}

// Validate returns the first policy violation, or nil when the password is
// acceptable. Username is fed to the strength estimator so passwords derived
// from the account name score poorly.
func (p *PasswordPolicy) Validate(password, username string) error {
	if p == nil {
		return fmt.Errorf("password policy not configured")
	}

	length := len([]rune(password))
	if length < p.minLength {
		return &PasswordPolicyError{
			Code:    "min_length",
			Message: fmt.Sprintf("password must be at least %d characters long", p.minLength),
		}
	}
	if length > p.maxLength {
		return &PasswordPolicyError{
			Code:    "max_length",
			Message: fmt.Sprintf("password must be at most %d characters long", p.maxLength),
		}
	}

	var userInputs []string
	if username != "" {
		userInputs = append(userInputs, username)
	}

	result := zxcvbn.PasswordStrength(password, userInputs)
	if result.Score < p.minScore {
		return &PasswordPolicyError{
			Code:    "too_weak",
			Message: "password is too easy to guess",
		}
	}

	return nil
}
