package writer

import (
	"strings"

	"github.com/Netcracker/qubership-data-exporter/crypto"
)

const maskedValue = "***MASKED***"

var piiColumns = []string{
	"email",
	"passwd",
	"password",
	"secure_key",
	"token",
	"firstname",
	"lastname",
	"phone",
	"address1",
	"address2",
	"other",
	"dni",
	"vat_number",
}

var secretColumns = []string{"passwd", "password", "secure_key", "token"}

// Anonymizer replaces PII values with irreversible, deterministic substitutes.
type Anonymizer struct {
	salt []byte
}

func NewAnonymizer(salt string) *Anonymizer {
	return &Anonymizer{salt: []byte(salt)}
}

func IsPiiColumn(column string) bool {
	return containsAny(strings.ToLower(column), piiColumns)
}

func (a *Anonymizer) Anonymize(column string, value string) string {
	if value == "" {
		return value
	}
	col := strings.ToLower(column)
	switch {
	case !containsAny(col, piiColumns):
		return value
	case strings.Contains(col, "email"):
		return a.anonymizeEmail(value)
	case strings.Contains(col, "phone"):
		return maskPhone(value)
	case containsAny(col, secretColumns):
		return maskedValue
	default:
		return a.hash(value, 16)
	}
}

func (a *Anonymizer) anonymizeEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") || !strings.Contains(email[at+1:], ".") {
		return a.hash(email, 16) + "@anonymized.local"
	}
	local, domain := email[:at], email[at+1:]
	prefix := []rune(local)
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return string(prefix) + "***" + a.hash(local, 8) + "@" + domain
}

func maskPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) <= 4 {
		return "****"
	}
	return digits[:2] + strings.Repeat("*", len(digits)-4) + digits[len(digits)-2:]
}

func (a *Anonymizer) hash(value string, length int) string {
	return crypto.CreateKeyedHash(a.salt, []byte(value))[:length]
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
