package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"docsum/models"

	"golang.org/x/crypto/bcrypt"
)

// Duplicate-field sentinels so handlers can map registration failures to 409.
var (
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already registered")
)

// Register validates and creates a new account. The password is stored as a
// bcrypt hash only.
func Register(username, email, password string) error {
	username = strings.TrimSpace(username)
	if err := models.ValidateUsername(username); err != nil {
		return err
	}
	email, err := models.ValidateEmail(email)
	if err != nil {
		return err
	}
	if err := models.ValidatePassword(password); err != nil {
		return err
	}

	// pre-check existing (optimistic)
	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return ErrUsernameTaken
	}
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	// ensure role exists (idempotent)
	var role models.Role
	if err := db.Where("name = ?", "user").First(&role).Error; err != nil {
		role = models.Role{Name: "user", Description: "regular user"}
		if err2 := db.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err2 != nil {
			return fmt.Errorf("failed to ensure user role: %v", err2)
		}
	}
	rid := role.ID
	user := models.User{Username: username, Email: email, HashedPassword: hashedPassword, Active: true, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) { // race condition after initial check
			return duplicateFieldError(err)
		}
		return err
	}
	log.Printf("new user registered: %s", username)
	return nil
}

// Authenticate verifies credentials and stamps LastLogin on success. All
// failure modes return the same generic error to the caller; the specific
// cause is only logged.
func Authenticate(username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		log.Printf("login failed: unknown username %q", username)
		return models.User{}, fmt.Errorf("invalid credentials")
	}
	if !user.Active {
		log.Printf("login failed: inactive account %q", username)
		return models.User{}, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		log.Printf("login failed: wrong password for %q", username)
		return models.User{}, fmt.Errorf("invalid credentials")
	}
	now := time.Now()
	user.LastLogin = &now
	if err := db.Model(&user).Update("last_login", now).Error; err != nil {
		log.Printf("warning: failed to update last_login for %q: %v", username, err)
	}
	return user, nil
}

// duplicateFieldError maps a unique-constraint violation to the sentinel for
// the colliding column. Postgres names the constraint after the column, so
// the message tells the two apart.
func duplicateFieldError(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "email") {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
