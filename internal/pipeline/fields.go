package pipeline

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fieldPattern binds a field name to the ordered regexes that can yield it.
// Within a field, the first pattern with a match wins and later patterns
// are not consulted.
type fieldPattern struct {
	name     string
	patterns []*regexp.Regexp
}

var fieldCatalog = []fieldPattern{
	{
		name: "P/N",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bP\s*/\s*N\s*[:#]?\s*([A-Z0-9][A-Z0-9\-_./]*)`),
			regexp.MustCompile(`(?i)\bPart\s*(?:No\.?|Number)\s*[:#]?\s*([A-Z0-9][A-Z0-9\-_./]*)`),
			regexp.MustCompile(`(?i)\bPN\s*[:#]\s*([A-Z0-9][A-Z0-9\-_./]*)`),
		},
	},
	{
		name: "QTY",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bQTY\s*[:#]?\s*(\d+)`),
			regexp.MustCompile(`(?i)\bQuantity\s*[:#]?\s*(\d+)`),
		},
	},
	{
		name: "DATE",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(?:DATE|MFG|D/C)\s*[:#]?\s*(\d{4}[-/.]\d{1,2}[-/.]\d{1,2})`),
			regexp.MustCompile(`(?i)\b(?:DATE|MFG|D/C)\s*[:#]?\s*(\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4})`),
		},
	},
	{
		name: "LOT",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bLOT\s*(?:No\.?)?\s*[:#]?\s*([A-Z0-9][A-Z0-9\-]*)`),
			regexp.MustCompile(`(?i)\bBatch\s*(?:No\.?)?\s*[:#]?\s*([A-Z0-9][A-Z0-9\-]*)`),
		},
	},
}

// ExtractFields scans text for the known label fields. Matching is
// case-insensitive, extracted values are whitespace-trimmed, and fields
// with no match are omitted from the returned map.
func ExtractFields(text string) map[string]string {
	if text == "" {
		return nil
	}
	text = norm.NFKC.String(text)

	fields := make(map[string]string)
	for _, fp := range fieldCatalog {
		for _, re := range fp.patterns {
			m := re.FindStringSubmatch(text)
			if len(m) < 2 {
				continue
			}
			value := strings.TrimSpace(m[1])
			if value != "" {
				fields[fp.name] = value
				break
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
