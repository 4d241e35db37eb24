package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParseVerdict_WellFormed tests parsing a complete response.
func TestParseVerdict_WellFormed(t *testing.T) {
	content := `<reasoning>Attempt to extract the system prompt.</reasoning>
<status>REJECT</status>
<violation_type>JAILBREAK</violation_type>`

	parsed := ParseVerdict(content)
	assert.Equal(t, StatusReject, parsed.Status)
	assert.Equal(t, ViolationJailbreak, parsed.Violation)
	assert.Equal(t, "Attempt to extract the system prompt.", parsed.Reasoning)
}

// TestParseVerdict_Defaults tests per-field defaulting on degraded output.
func TestParseVerdict_Defaults(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    ParsedVerdict
	}{
		{
			name:    "empty response",
			content: "",
			want:    ParsedVerdict{Status: StatusApprove, Violation: ViolationNone},
		},
		{
			name:    "free text without tags",
			content: "This message looks fine to me.",
			want:    ParsedVerdict{Status: StatusApprove, Violation: ViolationNone},
		},
		{
			name:    "status only",
			content: "<status>REJECT</status>",
			want:    ParsedVerdict{Status: StatusReject, Violation: ViolationNone},
		},
		{
			name:    "violation without status",
			content: "<violation_type>HARMFUL</violation_type>",
			want:    ParsedVerdict{Status: StatusApprove, Violation: ViolationHarmful},
		},
		{
			name:    "unknown status defaults to approve",
			content: "<status>MAYBE</status>",
			want:    ParsedVerdict{Status: StatusApprove, Violation: ViolationNone},
		},
		{
			name:    "unknown violation defaults to none",
			content: "<status>REJECT</status><violation_type>SPOOKY</violation_type>",
			want:    ParsedVerdict{Status: StatusReject, Violation: ViolationNone},
		},
		{
			name:    "unterminated tag is ignored",
			content: "<status>REJECT",
			want:    ParsedVerdict{Status: StatusApprove, Violation: ViolationNone},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseVerdict(tc.content))
		})
	}
}

// TestParseVerdict_Tolerance tests whitespace, casing, and surrounding
// prose around the tagged fields.
func TestParseVerdict_Tolerance(t *testing.T) {
	content := `Sure, here's my analysis.

<reasoning>
	The user is asking a cooking question.
</reasoning>
Some chatter in between.
<status> approve </status>
<violation_type>none</violation_type>
Hope that helps!`

	parsed := ParseVerdict(content)
	assert.Equal(t, StatusApprove, parsed.Status)
	assert.Equal(t, ViolationNone, parsed.Violation)
	assert.Equal(t, "The user is asking a cooking question.", parsed.Reasoning)
}

// TestParseVerdict_MultilineReasoning tests that reasoning spans newlines.
func TestParseVerdict_MultilineReasoning(t *testing.T) {
	content := "<reasoning>line one\nline two</reasoning><status>APPROVE</status>"

	parsed := ParseVerdict(content)
	assert.Equal(t, "line one\nline two", parsed.Reasoning)
}

// TestParseVerdict_FirstTagWins tests that repeated tags use the first span.
func TestParseVerdict_FirstTagWins(t *testing.T) {
	content := "<status>REJECT</status><status>APPROVE</status>"

	parsed := ParseVerdict(content)
	assert.Equal(t, StatusReject, parsed.Status)
}
