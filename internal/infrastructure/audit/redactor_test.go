package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactStringTagsIdentifiers(t *testing.T) {
	r := NewRedactor()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"ssn_dashes", "ssn 123-45-6789 on file", "ssn [SSN] on file"},
		{"ssn_dots", "ssn 123.45.6789 on file", "ssn [SSN] on file"},
		{"email", "contact alice@example.org today", "contact [EMAIL] today"},
		{"phone", "call (555) 867-5309", "call [PHONE]"},
		{"patient_id", "chart for patient-4821", "chart for [PATIENT_ID]"},
		{"patient_id_underscore", "chart for patient_4821", "chart for [PATIENT_ID]"},
		{"user_id", "requested by user-77", "requested by [USER_ID]"},
		{"clean", "no identifiers here", "no identifiers here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.RedactString(tc.in))
		})
	}
}

func TestRedactValueDropsSensitiveKeys(t *testing.T) {
	r := NewRedactor()

	in := map[string]interface{}{
		"scope":        "patient/read",
		"password":     "hunter2",
		"apiKey":       "abc123",
		"access_token": "eyJhbGciOi...",
		"nested": map[string]interface{}{
			"clientSecret": "shh",
			"note":         "email bob@example.org",
		},
	}

	out := r.RedactValue(in).(map[string]interface{})
	assert.Equal(t, "patient/read", out["scope"])
	assert.Equal(t, "[REDACTED]", out["password"])
	assert.Equal(t, "[REDACTED]", out["apiKey"])
	assert.Equal(t, "[REDACTED]", out["access_token"])

	nested := out["nested"].(map[string]interface{})
	assert.Equal(t, "[REDACTED]", nested["clientSecret"])
	assert.Equal(t, "email [EMAIL]", nested["note"])
}

func TestRedactValueRecursesSlices(t *testing.T) {
	r := NewRedactor()

	out := r.RedactValue([]interface{}{
		"patient-9 seen",
		map[string]interface{}{"token": "x"},
		42,
	}).([]interface{})

	assert.Equal(t, "[PATIENT_ID] seen", out[0])
	assert.Equal(t, "[REDACTED]", out[1].(map[string]interface{})["token"])
	assert.Equal(t, 42, out[2])
}

func TestRedactValueDoesNotMutateInput(t *testing.T) {
	r := NewRedactor()
	in := map[string]interface{}{"note": "patient-1"}

	_ = r.RedactValue(in)
	assert.Equal(t, "patient-1", in["note"])
}
