package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseAspectList decodes a stored aspect list. Accepted forms are a JSON array
// (`["a","b"]`), a bracketed list with single-quoted items (`['a', 'b']`) and a
// plain `;` or `|` separated string. The input is never evaluated.
func ParseAspectList(raw string) ([]string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "[]" {
		return nil, nil
	}

	if strings.HasPrefix(s, "[") {
		if !strings.HasSuffix(s, "]") {
			return nil, fmt.Errorf("unterminated aspect list %q", raw)
		}
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err == nil {
			return cleanAspects(out), nil
		}
		return parseQuotedList(s[1 : len(s)-1])
	}

	sep := ";"
	if !strings.Contains(s, sep) && strings.Contains(s, "|") {
		sep = "|"
	}
	return cleanAspects(strings.Split(s, sep)), nil
}

// parseQuotedList scans comma separated items, each wrapped in ' or ".
func parseQuotedList(body string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		quote   rune
		escaped bool
	)

	for _, r := range body {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
			cur.Reset()
		case quote != 0 && r == '\\':
			escaped = true
		case quote != 0 && r == quote:
			out = append(out, cur.String())
			quote = 0
		case quote != 0:
			cur.WriteRune(r)
		case r == ',' || r == ' ' || r == '\t':
		default:
			return nil, fmt.Errorf("unexpected %q outside quotes in aspect list", r)
		}
	}
	if quote != 0 || escaped {
		return nil, fmt.Errorf("unterminated quote in aspect list")
	}
	return cleanAspects(out), nil
}

func cleanAspects(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
