package privacy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		field string
		want  Tier
	}{
		{"national_id", TierCritical},
		{"bank_account", TierCritical},
		{"Phone", TierSensitive},
		{"  EMAIL ", TierSensitive},
		{"salary", TierSensitive},
		{"name", TierGeneral},
		{"gender", TierGeneral},
		{"is_active", TierPublic},
		{"page_size", TierPublic},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Classify(tc.field), "field %q", tc.field)
	}
}

func TestMask(t *testing.T) {
	masked := Mask("9876543210")
	assert.True(t, strings.HasSuffix(masked, "3210"))
	assert.NotContains(t, masked, "987654")

	assert.Equal(t, "****", Mask("1234"))
	assert.Equal(t, "****", Mask("ab"))
	assert.Equal(t, "****", Mask(""))
}

func TestHashValue(t *testing.T) {
	h1 := HashValue("phone", "9876543210")
	h2 := HashValue("phone", " 9876543210 ")
	h3 := HashValue("phone", "9876543211")

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2, "trim-insensitive")
	assert.NotEqual(t, h1, h3)
	assert.NotContains(t, h1, "9876")

	// The field name namespaces the hash.
	assert.NotEqual(t, HashValue("phone", "x"), HashValue("mobile", "x"))
}

func TestSanitizeMetadata(t *testing.T) {
	md := map[string]interface{}{
		"phone":     "9876543210",
		"is_active": true,
		"name":      "Asha Rao",
		"salary":    52000,
	}

	out := SanitizeMetadata(md)

	assert.Equal(t, "****3210", out["phone"])
	assert.Equal(t, true, out["is_active"])
	assert.Equal(t, "Asha Rao", out["name"])
	assert.Equal(t, "****2000", out["salary"])

	// Input is left untouched.
	assert.Equal(t, "9876543210", md["phone"])
	assert.Nil(t, SanitizeMetadata(nil))
}
