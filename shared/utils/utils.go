package utils

import (
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var loginPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{2,49}$`)

// HashPassword hashes a password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword checks if a password matches a hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidateLogin validates the login format: lowercase, starts with a letter,
// 3-50 characters.
func ValidateLogin(login string) bool {
	return loginPattern.MatchString(login)
}

// Age returns full years between birthDate and now.
func Age(birthDate, now time.Time) int {
	years := now.Year() - birthDate.Year()
	anniversary := birthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}
