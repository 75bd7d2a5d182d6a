// Package privacy implements the data classification table that drives
// log masking: CRITICAL and SENSITIVE fields are always masked before an
// audit record is persisted, GENERAL fields are GDPR-relevant but kept
// readable, anything else is PUBLIC and passes through unchanged.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Tier is the sensitivity level of a data field.
type Tier int

const (
	TierPublic Tier = iota
	TierGeneral
	TierSensitive
	TierCritical
)

func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierSensitive:
		return "sensitive"
	case TierGeneral:
		return "general"
	}
	return "public"
}

// maskPlaceholder replaces values too short to partially reveal.
const maskPlaceholder = "****"

var fieldTiers = map[string]Tier{
	// CRITICAL: national identifiers, financial identifiers, health data.
	"national_id":    TierCritical,
	"aadhaar_number": TierCritical,
	"passport_no":    TierCritical,
	"bank_account":   TierCritical,
	"account_number": TierCritical,
	"ifsc_code":      TierCritical,
	"card_number":    TierCritical,
	"medical_notes":  TierCritical,
	"blood_group":    TierCritical,
	"biometric_id":   TierCritical,

	// SENSITIVE: direct contact and protected-category attributes.
	"email":          TierSensitive,
	"phone":          TierSensitive,
	"mobile":         TierSensitive,
	"date_of_birth":  TierSensitive,
	"dob":            TierSensitive,
	"address":        TierSensitive,
	"home_address":   TierSensitive,
	"salary":         TierSensitive,
	"guardian_phone": TierSensitive,
	"religion":       TierSensitive,
	"caste":          TierSensitive,
	"disability":     TierSensitive,

	// GENERAL: GDPR-relevant but readable in compliance review.
	"name":             TierGeneral,
	"first_name":       TierGeneral,
	"last_name":        TierGeneral,
	"gender":           TierGeneral,
	"admission_number": TierGeneral,
	"employee_id":      TierGeneral,
	"roll_number":      TierGeneral,
}

// Classify returns the sensitivity tier of a field name. Unknown fields
// are PUBLIC.
func Classify(field string) Tier {
	return fieldTiers[strings.ToLower(strings.TrimSpace(field))]
}

// Mask reveals only the last four characters of value; shorter values are
// replaced wholesale.
func Mask(value string) string {
	if len(value) <= 4 {
		return maskPlaceholder
	}
	return maskPlaceholder + value[len(value)-4:]
}

// HashValue produces the one-way form stored for PII field values inside
// change sets: SHA-256 of "<field>:<lowercased-trimmed-value>". Equal
// before/after values stay comparable without being reconstructable.
func HashValue(field, value string) string {
	canonical := strings.ToLower(strings.TrimSpace(field)) + ":" + strings.ToLower(strings.TrimSpace(value))
	sum := sha256.Sum256([]byte(canonical))
	return fmt.Sprintf("%x", sum)
}

// SanitizeMetadata returns a copy of md with CRITICAL and SENSITIVE
// values masked. PUBLIC and GENERAL entries pass through unchanged.
// Non-string classified values are rendered before masking.
func SanitizeMetadata(md map[string]interface{}) map[string]interface{} {
	if md == nil {
		return nil
	}
	out := make(map[string]interface{}, len(md))
	for key, val := range md {
		if Classify(key) >= TierSensitive {
			out[key] = Mask(fmt.Sprintf("%v", val))
			continue
		}
		out[key] = val
	}
	return out
}
