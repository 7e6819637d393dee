package models

import (
	"fmt"
	"regexp"
	"strings"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateUsername checks the account username rules. Callers inspect the
// returned error instead of relying on constructor panics.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username required")
	}
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	return nil
}

// ValidateEmail checks the email format and returns the canonical lowercase
// form to store.
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("email required")
	}
	if !emailRE.MatchString(email) {
		return "", fmt.Errorf("invalid email format")
	}
	return strings.ToLower(email), nil
}

// ValidatePassword enforces the minimum password length. The plaintext is
// never stored; only a bcrypt hash ends up in the database.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	return nil
}
