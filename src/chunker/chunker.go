// Package chunker splits long text into bounded, semantically coherent pieces
// for map-reduce summarization. Splitting is deterministic: the same input and
// budget always produce the same chunk sequence, and concatenating the chunks
// reproduces the input exactly.
package chunker

import "strings"

// DefaultMaxChars is the chunk budget used when the caller passes a
// non-positive one.
const DefaultMaxChars = 128_000

const (
	paragraphSep = "\n\n"
	sentenceSep  = ". "
)

// Split divides text into ordered chunks of at most maxChars characters.
// Paragraph boundaries are preferred; a paragraph that alone exceeds the
// budget is split on sentence boundaries. A single sentence longer than the
// budget is emitted as its own oversized chunk rather than being cut.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	var units []string
	for _, para := range strings.SplitAfter(text, paragraphSep) {
		if para == "" {
			continue
		}
		if len(para) <= maxChars {
			units = append(units, para)
			continue
		}
		units = append(units, splitSentences(para, maxChars)...)
	}

	var (
		chunks []string
		cur    strings.Builder
	)
	for _, unit := range units {
		if cur.Len() > 0 && cur.Len()+len(unit) > maxChars {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(unit)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// splitSentences packs whole sentences into groups of at most maxChars.
// Separators stay attached to their sentence so regrouping is lossless.
func splitSentences(para string, maxChars int) []string {
	var (
		groups []string
		cur    strings.Builder
	)
	for _, sent := range strings.SplitAfter(para, sentenceSep) {
		if sent == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(sent) > maxChars {
			groups = append(groups, cur.String())
			cur.Reset()
		}
		cur.WriteString(sent)
	}
	if cur.Len() > 0 {
		groups = append(groups, cur.String())
	}
	return groups
}
