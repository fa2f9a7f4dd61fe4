package chunk

import (
	"context"
	"regexp"
	"strings"
)

// Regex heuristics for heading detection. Unlike the teacher's markdown-only
// chunker, DocumentChunker also treats numbered sections ("1.2 Scope") and
// short ALL-CAPS lines as headings, since TextSource may hand back plain
// text extracted from a PDF or DOCX with no Markdown syntax at all.
var (
	mdHeaderPattern      = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	numberedHeaderPattern = regexp.MustCompile(`(?m)^(\d+(?:\.\d+)*)\s+([A-Z][^\n]{0,80})$`)
	allCapsHeaderPattern  = regexp.MustCompile(`(?m)^([A-Z][A-Z0-9 /&\-]{2,78})$`)
)

// DocumentChunker is a structure-aware chunker (§4.2): it prefers section
// boundaries detected by heading heuristics over fixed-size splits, and
// within a section emits overlapping windows of approximately Tokens words.
type DocumentChunker struct{}

// NewDocumentChunker creates a document chunker. It is stateless.
func NewDocumentChunker() *DocumentChunker {
	return &DocumentChunker{}
}

type docSection struct {
	title string
	body  string
}

// Chunk implements Chunker.
func (c *DocumentChunker) Chunk(ctx context.Context, in *DocInput) ([]*Chunk, error) {
	tokens := in.Tokens
	if tokens <= 0 {
		tokens = DefaultTokens
	}
	overlap := in.Overlap
	if overlap < 0 || overlap >= tokens {
		overlap = DefaultOverlap
	}

	text := in.Text
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	sections := detectSections(text)

	var out []*Chunk
	seq := 0
	for _, sec := range sections {
		windows := windowWords(sec.body, tokens, overlap)
		for _, w := range windows {
			body := strings.TrimSpace(w)
			if body == "" {
				continue
			}
			out = append(out, &Chunk{Title: sec.title, Body: body, SeqIdx: seq})
			seq++
		}
	}
	return out, nil
}

// detectSections splits text on detected heading lines. Each section's body
// is the heading's own line followed by everything up to (not including)
// the next heading. Text preceding the first heading becomes a titleless
// leading section. If no headings are found at all, the whole document is
// a single titleless section, handed to windowWords for fixed-size splitting.
func detectSections(text string) []docSection {
	lines := strings.Split(text, "\n")

	type headingLine struct {
		idx   int
		title string
	}
	var headings []headingLine
	for i, line := range lines {
		if m := mdHeaderPattern.FindStringSubmatch(line); m != nil {
			headings = append(headings, headingLine{idx: i, title: strings.TrimSpace(m[2])})
			continue
		}
		if m := numberedHeaderPattern.FindStringSubmatch(line); m != nil {
			headings = append(headings, headingLine{idx: i, title: strings.TrimSpace(line[len(m[1]):])})
			continue
		}
		trimmed := strings.TrimSpace(line)
		if allCapsHeaderPattern.MatchString(trimmed) && len(strings.Fields(trimmed)) <= 10 {
			headings = append(headings, headingLine{idx: i, title: trimmed})
		}
	}

	if len(headings) == 0 {
		return []docSection{{title: "", body: text}}
	}

	var sections []docSection
	if headings[0].idx > 0 {
		lead := strings.Join(lines[:headings[0].idx], "\n")
		if strings.TrimSpace(lead) != "" {
			sections = append(sections, docSection{title: "", body: lead})
		}
	}
	for i, h := range headings {
		end := len(lines)
		if i+1 < len(headings) {
			end = headings[i+1].idx
		}
		body := strings.Join(lines[h.idx:end], "\n")
		sections = append(sections, docSection{title: h.title, body: body})
	}
	return sections
}

// windowWords slices text into overlapping windows of approximately
// windowSize whitespace-delimited words, advancing by (windowSize-overlap)
// words each step. A single word is treated as one token for this
// deterministic, tokenizer-agnostic windowing scheme — the spec only
// requires determinism, not a specific subword tokenizer.
func windowWords(text string, windowSize, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= windowSize {
		return []string{text}
	}

	stride := windowSize - overlap
	if stride < 1 {
		stride = windowSize
	}

	var out []string
	for start := 0; start < len(words); start += stride {
		end := start + windowSize
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}

// EstimateTokens approximates a token count from character length using a
// chars/4 heuristic. DocumentChunker does not use it: its windows count
// whitespace-delimited words.
func EstimateTokens(s string) int {
	return len(s) / CharsPerTokenEstim
}
