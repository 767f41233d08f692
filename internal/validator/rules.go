package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var (
	uppercaseRegex = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex = regexp.MustCompile(`[a-z]`)
	digitRegex     = regexp.MustCompile(`[0-9]`)
)

// RequiredString validates that a string is not empty after trimming.
func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
		},
	}
}

// ValidEmail validates that a string is a usable email address.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}

			addr, err := mail.ParseAddress(value)
			if err != nil {
				return false
			}

			// Additional validation for typical web use
			email := addr.Address
			parts := strings.Split(email, "@")
			if len(parts) != 2 {
				return false
			}

			localPart := parts[0]
			domain := parts[1]

			if localPart == "" {
				return false
			}

			// Domain must contain at least one dot and cannot start/end with dot
			if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
				return false
			}

			for part := range strings.SplitSeq(domain, ".") {
				if part == "" {
					return false
				}
			}

			return true
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be a valid email address", field),
		},
	}
}

// PasswordPolicy describes complexity requirements for new passwords.
type PasswordPolicy struct {
	MinLength    int  `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`
	MaxLength    int  `env:"PASSWORD_MAX_LENGTH" envDefault:"128"`
	RequireUpper bool `env:"PASSWORD_REQUIRE_UPPER" envDefault:"true"`
	RequireLower bool `env:"PASSWORD_REQUIRE_LOWER" envDefault:"true"`
	RequireDigit bool `env:"PASSWORD_REQUIRE_DIGIT" envDefault:"true"`
}

// DefaultPasswordPolicy returns the policy applied when none is configured.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:    8,
		MaxLength:    128,
		RequireUpper: true,
		RequireLower: true,
		RequireDigit: true,
	}
}

// StrongPassword validates a password against the given policy.
func StrongPassword(field, value string, policy PasswordPolicy) Rule {
	return Rule{
		Check: func() bool {
			if len(value) < policy.MinLength || len(value) > policy.MaxLength {
				return false
			}
			if policy.RequireUpper && !uppercaseRegex.MatchString(value) {
				return false
			}
			if policy.RequireLower && !lowercaseRegex.MatchString(value) {
				return false
			}
			if policy.RequireDigit && !digitRegex.MatchString(value) {
				return false
			}
			return true
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("password must be %d-%d characters with required character types", policy.MinLength, policy.MaxLength),
		},
	}
}
