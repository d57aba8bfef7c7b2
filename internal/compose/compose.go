// Package compose builds LinkedIn draft prefills from published posts.
// It contains the plain-text summarization and hashtag helpers used by
// the draft composer endpoint.
package compose

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"labsite/internal/types"
)

// DefaultSummaryRunes is the summary length used when pre-filling a draft.
const DefaultSummaryRunes = 400

var (
	hashtagPattern   = regexp.MustCompile(`#([A-Za-z0-9_]+)`)
	codeFencePattern = regexp.MustCompile("(?s)```.*?```")
	inlineCodePat    = regexp.MustCompile("`([^`]*)`")
	imagePattern     = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkPattern      = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	headingPattern   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	listMarkerPat    = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	quotePattern     = regexp.MustCompile(`(?m)^>\s?`)
	emphasisPattern  = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	whitespacePat    = regexp.MustCompile(`\s+`)
)

// ExtractHashtags returns the inline #hashtags found in text, lowercased
// and without the leading '#'. Order of first appearance is preserved and
// duplicates are dropped. The result is never nil.
func ExtractHashtags(text string) []string {
	tags := []string{}
	seen := make(map[string]struct{})
	for _, match := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(match[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// NormalizeHashtags lowercases the given tags, strips any leading '#',
// drops empties, and de-duplicates while preserving order. Used to merge
// a post's tag list with tags extracted from its body.
func NormalizeHashtags(tags ...string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#")))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Summarize converts markdown to a single-line plain-text summary of at
// most maxRunes runes. Markdown structure (code fences, headings, links,
// emphasis, list markers, blockquotes) is stripped rather than rendered;
// link and image text survives, their URLs do not. When the text is cut
// it ends at a word boundary followed by an ellipsis.
func Summarize(markdown string, maxRunes int) string {
	text := codeFencePattern.ReplaceAllString(markdown, " ")
	text = imagePattern.ReplaceAllString(text, "$1")
	text = linkPattern.ReplaceAllString(text, "$1")
	text = inlineCodePat.ReplaceAllString(text, "$1")
	text = headingPattern.ReplaceAllString(text, "")
	text = listMarkerPat.ReplaceAllString(text, "")
	text = quotePattern.ReplaceAllString(text, "")
	text = emphasisPattern.ReplaceAllString(text, "$1")
	text = strings.TrimSpace(whitespacePat.ReplaceAllString(text, " "))

	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}

	cut := maxRunes
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = maxRunes
	}
	return strings.TrimRight(string(runes[:cut]), " ,;:.") + "…"
}

// PrefillDraft builds a LinkedIn draft from a published post: the body is
// the post title followed by a plain-text summary, and the hashtag list
// merges the post's tags with tags found inline in the body.
func PrefillDraft(post types.PublicPost) types.LinkedInDraft {
	merged := append(append([]string{}, post.Tags...), ExtractHashtags(post.BodyMD)...)
	return types.LinkedInDraft{
		Body:       fmt.Sprintf("%s\n\n%s", post.Title, Summarize(post.BodyMD, DefaultSummaryRunes)),
		Hashtags:   NormalizeHashtags(merged...),
		SourceSlug: post.Slug,
	}
}
