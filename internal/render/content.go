package render

import (
	"strings"
)

// ContentLimit is the number of characters shown before "See More".
const ContentLimit = 200

// Line is one line of day content. Key is empty when the line is not of the
// form "key: value".
type Line struct {
	Key   string
	Value string
}

type Content struct {
	Full         string
	Preview      string
	Truncated    bool
	Lines        []Line
	PreviewLines []Line
}

// DescribeContent hides price lines and splits day content for display.
func DescribeContent(content string) Content {
	full := filterPrice(content)
	c := Content{Full: full, Preview: full, Lines: splitLines(full)}
	if r := []rune(full); len(r) > ContentLimit {
		c.Preview = string(r[:ContentLimit])
		c.Truncated = true
	}
	c.PreviewLines = splitLines(c.Preview)
	return c
}

func filterPrice(content string) string {
	in := strings.Split(content, "\n")
	out := in[:0]
	for _, l := range in {
		if strings.HasPrefix(strings.ToLower(l), "price:") {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func splitLines(s string) []Line {
	var out []Line
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		k, v, ok := strings.Cut(l, ": ")
		if !ok || v == "" {
			out = append(out, Line{Value: l})
			continue
		}
		out = append(out, Line{Key: k, Value: v})
	}
	return out
}
