package utils

import (
	"net/url"
	"regexp"
	"strings"
)

var campusEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@student\.unsri\.ac\.id$`)

// passwordSymbols are the special characters a password must include one of.
const passwordSymbols = "!@#$%^&*"

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsCampusEmail reports whether email is a student address of the campus
// domain.
func IsCampusEmail(email string) bool {
	return campusEmail.MatchString(email)
}

// PasswordProblem returns a human readable reason when password is too
// weak, or "" when it is acceptable.
func PasswordProblem(password string) string {
	var lower, upper, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	switch {
	case !lower:
		return "must contain a lower-case letter"
	case !upper:
		return "must contain an upper-case letter"
	case !symbol:
		return "must contain one of " + passwordSymbols
	}
	return ""
}

// AvatarURL returns the generated avatar image for a display name.
func AvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(strings.TrimSpace(name)) + "&background=random"
}
