package logger

import "strings"

// MaskAuthorization masks an Authorization header. ERPNext uses
// "token <key>:<secret>"; the scheme and the last 4 characters of the key
// survive, the secret never does.
func MaskAuthorization(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.Fields(value)
	if len(parts) == 2 && (strings.EqualFold(parts[0], "token") || strings.EqualFold(parts[0], "Bearer")) {
		cred := parts[1]
		if key, _, ok := strings.Cut(cred, ":"); ok {
			return parts[0] + " " + maskLast4(key) + ":****"
		}
		return parts[0] + " " + maskLast4(cred)
	}
	return maskLast4(value)
}

// MaskAPIKey masks API keys, preserving only the last 4 characters.
func MaskAPIKey(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return maskLast4(value)
}

func maskLast4(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
