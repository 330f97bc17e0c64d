package users

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 128
)

// ValidatePasswordStrength checks a candidate password against the domain
// rules and returns the list of violated rules, empty when the password is
// acceptable:
//   - 8 to 128 characters long
//   - contains uppercase and lowercase letters
//   - contains at least one number
//   - contains at least one special character
func ValidatePasswordStrength(password string) []string {
	var violations []string

	if len(password) < passwordMinLength {
		violations = append(violations, "password must be at least 8 characters long")
	}
	if len(password) > passwordMaxLength {
		violations = append(violations, "password must not exceed 128 characters")
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	if !hasUpper {
		violations = append(violations, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "password must contain at least one lowercase letter")
	}
	if !hasNumber {
		violations = append(violations, "password must contain at least one number")
	}
	if !hasSpecial {
		violations = append(violations, "password must contain at least one special character")
	}

	return violations
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
