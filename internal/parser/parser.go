// Package parser derives tags, wiki-links, counters, and excerpts from note
// content, and encodes notes as Markdown documents with YAML frontmatter.
package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ExcerptLength is the default excerpt size in characters.
const ExcerptLength = 200

// WordsPerMinute is the reading speed used for read-time estimates.
const WordsPerMinute = 200

var (
	wikilinkRe   = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	tagRe        = regexp.MustCompile(`#(\w+)`)
	markdownPunc = regexp.MustCompile("[#*_`\\[\\]()]")
)

// Derived holds every content-derived field of a note.
type Derived struct {
	Excerpt   string
	Tags      []string
	Links     []string
	WordCount int
	ReadTime  int
}

// Derive computes all derived fields for content.
func Derive(content string) Derived {
	wc := CountWords(content)
	return Derived{
		Excerpt:   Excerpt(content, ExcerptLength),
		Tags:      Tags(content),
		Links:     WikiLinks(content),
		WordCount: wc,
		ReadTime:  ReadTime(wc),
	}
}

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// CountWords counts whitespace-separated non-empty tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// ReadTime returns minutes needed to read words, rounded up. Zero words is zero minutes.
func ReadTime(words int) int {
	if words <= 0 {
		return 0
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}

// Excerpt strips Markdown punctuation and truncates to max characters,
// appending "..." when truncated.
func Excerpt(content string, max int) string {
	plain := strings.TrimSpace(markdownPunc.ReplaceAllString(content, ""))
	if utf8.RuneCountInString(plain) <= max {
		return plain
	}
	return Truncate(plain, max) + "..."
}

// Truncate returns at most n leading characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Tags returns the deduplicated #tags in content, case preserved.
func Tags(content string) []string {
	return uniqueSubmatches(tagRe, content)
}

// WikiLinks returns the deduplicated [[link]] targets in content, verbatim.
func WikiLinks(content string) []string {
	return uniqueSubmatches(wikilinkRe, content)
}

func uniqueSubmatches(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}
