package safety

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// ParsedVerdict holds the fields extracted from a classifier response.
// Each field carries its defaulting behavior: a missing or unrecognized
// status defaults to APPROVE (fail-open, never REJECT), a missing
// violation type defaults to NONE, and missing reasoning stays empty.
type ParsedVerdict struct {
	Status    Status
	Violation ViolationType
	Reasoning string
}

// ParseVerdict extracts the structured verdict fields from raw model
// output. It never fails: malformed or partial output degrades to the
// per-field defaults.
func ParseVerdict(content string) ParsedVerdict {
	parsed := ParsedVerdict{
		Status:    StatusApprove,
		Violation: ViolationNone,
	}

	if reasoning, ok := extractTag(content, "reasoning"); ok {
		parsed.Reasoning = reasoning
	}

	if raw, ok := extractTag(content, "status"); ok {
		switch Status(strings.ToUpper(raw)) {
		case StatusReject:
			parsed.Status = StatusReject
		case StatusApprove:
			parsed.Status = StatusApprove
		}
	}

	if raw, ok := extractTag(content, "violation_type"); ok {
		switch ViolationType(strings.ToUpper(raw)) {
		case ViolationJailbreak, ViolationHarmful, ViolationAbuse:
			parsed.Violation = ViolationType(strings.ToUpper(raw))
		}
	}

	return parsed
}

var (
	tagPatterns   = make(map[string]*regexp.Regexp)
	tagPatternsMu sync.Mutex
)

// extractTag returns the trimmed content of the first <tag>...</tag> span,
// or false if the tag is absent.
func extractTag(content, tag string) (string, bool) {
	tagPatternsMu.Lock()
	re, ok := tagPatterns[tag]
	if !ok {
		re = regexp.MustCompile(fmt.Sprintf(`(?s)<%s>(.*?)</%s>`, tag, tag))
		tagPatterns[tag] = re
	}
	tagPatternsMu.Unlock()

	match := re.FindStringSubmatch(content)
	if match == nil {
		return "", false
	}
	return strings.TrimSpace(match[1]), true
}
