// Package email holds address and greeting helpers for outbound mail.
package email

import (
	"net/mail"
	"strings"
	"unicode"
)

// GreetingName picks the name used after "Hi": the preferred name, then the
// first name, then one derived from the address.
func GreetingName(casual, first, address string) string {
	if s := strings.TrimSpace(casual); s != "" {
		return s
	}
	if s := strings.TrimSpace(first); s != "" {
		return s
	}
	return nameFromAddress(address)
}

// nameFromAddress turns "jane.citizen@example.com" into "Jane".
func nameFromAddress(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "there"
	}
	return capitalize(parts[0])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// FormatAddress renders a From header such as "Luna at FDC Tax <hello@fdctax.com.au>".
func FormatAddress(name, address string) string {
	if strings.TrimSpace(name) == "" {
		return address
	}
	return name + " <" + address + ">"
}

// Valid reports whether address parses as a single bare mailbox.
func Valid(address string) bool {
	a, err := mail.ParseAddress(address)
	return err == nil && a.Address == address
}
