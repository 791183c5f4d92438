package utils

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// DigitsOnly strips everything that is not a decimal digit.
func DigitsOnly(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// NormalizeChatKey converts any chat-network address to the canonical
// digits-only customer key. Known suffixes and prefixes are removed first so
// the same customer always maps to the same key regardless of which address
// form the network presented.
func NormalizeChatKey(jid string) string {
	if jid == "" {
		return ""
	}

	jid = strings.TrimPrefix(jid, "whatsapp:")
	jid = strings.TrimSuffix(jid, "@s.whatsapp.net")
	jid = strings.TrimSuffix(jid, "@lid")
	jid = strings.TrimSuffix(jid, "@c.us")

	return DigitsOnly(jid)
}

// EnsureCountryCode prefixes the Brazilian country code when the number looks
// like a local one. Brazilian numbers are at most 11 digits (DDD + 9 digits).
func EnsureCountryCode(digits string) string {
	if digits == "" {
		return ""
	}
	if len(digits) <= 11 {
		return "55" + digits
	}
	return digits
}
