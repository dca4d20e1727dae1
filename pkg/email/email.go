// Package email derives presentation fields from email addresses.
package email

import (
	"strings"
	"unicode"
)

// DeriveNameFromEmail splits the local part of an address into a first and
// last name. Missing parts default to "Registrant".
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "Registrant", "Registrant"
	}

	first := capitalize(parts[0])
	last := "Registrant"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

// DisplayNameFromEmail joins DeriveNameFromEmail's parts, omitting the default
// last name when only one part exists.
func DisplayNameFromEmail(email string) string {
	first, last := DeriveNameFromEmail(email)
	if last == "Registrant" {
		return first
	}
	return first + " " + last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
