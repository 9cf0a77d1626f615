// Package extract finds checkable factual claims in article text.
package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/credence/internal/model"
	"golang.org/x/net/html"
)

// DefaultMaxClaims caps the claims returned by one extraction
const DefaultMaxClaims = 20

// DefaultTextConsistency is reported when the extractor cannot judge the text
const DefaultTextConsistency = 0.5

// Extractor finds claims in plain text. Claim offsets are rune offsets
// into the text passed to Extract.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, text string) (*Extraction, error)
}

// Extraction is the output of one extractor run
type Extraction struct {
	Claims          []model.Claim
	TextConsistency float64 // Internal consistency of the text, 0-1
}

// LooksLikeHTML reports whether text is markup rather than prose
func LooksLikeHTML(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "<") {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range []string{"<!doctype", "<html", "<body", "<p", "<div", "<article", "<head"} {
		if strings.HasPrefix(lower, marker) {
			return true
		}
	}
	return strings.Contains(lower, "</p>") || strings.Contains(lower, "</div>")
}

// VisibleText returns the text a reader would see, with one paragraph per
// block element. Script, style and embedded content are skipped.
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "svg", "template":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				if buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n\n") {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlock(n.Data) && buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n\n") {
			buf.WriteString("\n\n")
		}
	}

	walk(doc)
	return strings.TrimSpace(buf.String()), nil
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6",
		"blockquote", "article", "section", "header", "footer", "tr", "br", "figcaption":
		return true
	}
	return false
}

// locate finds claim in text and returns its rune offsets. An exact match
// is preferred; otherwise matching ignores case.
func locate(text, claim string) (int, int, bool) {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return 0, 0, false
	}

	idx := strings.Index(text, claim)
	if idx < 0 {
		idx = indexFold(text, claim)
	}
	if idx < 0 {
		return 0, 0, false
	}

	start := utf8.RuneCountInString(text[:idx])
	return start, start + utf8.RuneCountInString(claim), true
}

// indexFold is a case-insensitive strings.Index returning a byte offset into s
func indexFold(s, substr string) int {
	n := utf8.RuneCountInString(substr)
	for i := range s {
		end := i
		for k := 0; k < n && end < len(s); k++ {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
		}
		if strings.EqualFold(s[i:end], substr) {
			return i
		}
	}
	return -1
}

// dedupeClaims removes duplicate claims, keeping the first occurrence
func dedupeClaims(claims []model.Claim) []model.Claim {
	seen := make(map[string]bool)
	unique := make([]model.Claim, 0, len(claims))

	for _, claim := range claims {
		key := strings.ToLower(strings.Join(strings.Fields(claim.Text), " "))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, claim)
	}

	return unique
}

func capClaims(claims []model.Claim, max int) []model.Claim {
	if max <= 0 {
		max = DefaultMaxClaims
	}
	if len(claims) > max {
		return claims[:max]
	}
	return claims
}
