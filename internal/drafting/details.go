package drafting

import (
	"regexp"
	"strings"
)

// Detail is one "Key: Value" pair from the user's free-text inputs.
type Detail struct {
	Key   string
	Value string
}

// placeholderAliases lists template tokens a detail key also fills.
var placeholderAliases = map[string][]string{
	"name":           {"Full Name", "Name"},
	"full name":      {"Full Name", "Name"},
	"father":         {"Father's Name"},
	"father name":    {"Father's Name"},
	"father's name":  {"Father's Name"},
	"address":        {"Full Address", "Address"},
	"full address":   {"Full Address", "Address"},
	"party a":        {"Party A Name"},
	"party b":        {"Party B Name"},
	"court":          {"Court Name"},
	"statement":      {"Statement"},
	"facts":          {"Statement"},
	"ground":         {"Grounds"},
	"reason":         {"Grounds"},
	"relief sought":  {"Relief"},
	"duration":       {"Term"},
	"period":         {"Term"},
	"amount":         {"Consideration"},
	"payment":        {"Consideration"},
	"purpose of nda": {"Purpose"},
}

// ParseDetails splits "Name: Jane Doe, Age: 30" style input on commas and
// newlines. A segment without a colon continues the previous value, so
// "Address: 12 MG Road, Pune" stays one detail.
func ParseDetails(input string) []Detail {
	var details []Detail
	for _, line := range strings.Split(input, "\n") {
		for _, seg := range strings.Split(line, ",") {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			key, value, ok := strings.Cut(seg, ":")
			key, value = strings.TrimSpace(key), strings.TrimSpace(value)
			if !ok || key == "" || strings.ContainsAny(key, "[]") {
				if n := len(details); n > 0 {
					details[n-1].Value += ", " + seg
				}
				continue
			}
			details = append(details, Detail{Key: key, Value: value})
		}
	}
	out := details[:0]
	for _, d := range details {
		if d.Value != "" {
			out = append(out, d)
		}
	}
	return out
}

// placeholders returns the bracketed tokens a detail fills.
func (d Detail) placeholders() []string {
	names := []string{d.Key}
	names = append(names, placeholderAliases[normalize(d.Key)]...)
	out := make([]string, 0, len(names))
	seen := map[string]bool{}
	for _, n := range names {
		token := "[" + strings.TrimSpace(n) + "]"
		if !seen[strings.ToLower(token)] {
			seen[strings.ToLower(token)] = true
			out = append(out, token)
		}
	}
	return out
}

// finalizeDraft substitutes supplied details into any placeholder the model
// left untouched. Matching is case-insensitive.
func finalizeDraft(draft string, details []Detail) string {
	for _, d := range details {
		for _, token := range d.placeholders() {
			re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(token))
			draft = re.ReplaceAllLiteralString(draft, d.Value)
		}
	}
	return draft
}

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
