package utils

import "strings"

// MaskSecret hides all but the first and last character of a secret value.
func MaskSecret(s string) string {
	if len(s) <= 2 {
		return "***"
	}
	return s[:1] + "***" + s[len(s)-1:]
}

// MaskEmail hides the local part of an email-style username, keeping the
// first character and the full domain so log lines stay attributable.
func MaskEmail(addr string) string {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return MaskSecret(addr)
	}
	if at == 0 {
		// No local part to attribute by; hide everything.
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}
