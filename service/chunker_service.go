package service

import (
	"math"
	"regexp"
	"strings"

	"github.com/quangdm/studyrag-be/types"
)

// tokensPerWord is the whitespace-word to token ratio used everywhere a
// token budget is enforced. It is a deliberate heuristic, not a tokenizer;
// changing it moves every chunk boundary.
const tokensPerWord = 1.3

var DefaultChunkerConfig = types.ChunkerConfig{
	MaxTokens:     500,
	OverlapTokens: 50,
}

// ChunkerService splits raw document text into token-bounded, overlapping
// chunks. Splitting granularity degrades paragraph -> sentence -> word and
// only when a unit on its own exceeds the budget; a single word over the
// budget is emitted as-is.
type ChunkerService struct {
	maxTokens     int
	overlapTokens int
}

func NewChunkerService(config types.ChunkerConfig) *ChunkerService {
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultChunkerConfig.MaxTokens
	}
	if config.OverlapTokens <= 0 {
		config.OverlapTokens = DefaultChunkerConfig.OverlapTokens
	}
	return &ChunkerService{
		maxTokens:     config.MaxTokens,
		overlapTokens: config.OverlapTokens,
	}
}

// EstimateTokens approximates the token count of a string as
// ceil(wordCount * 1.3), splitting words on runs of whitespace.
func EstimateTokens(s string) int {
	words := strings.Fields(s)
	if len(words) == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(words)) * tokensPerWord))
}

var (
	// Blank-line separator; \r in the class keeps CRLF documents splitting
	// into paragraphs instead of one giant block.
	paragraphSplitter = regexp.MustCompile(`\n[ \t\r]*\n+`)
	// A sentence ends at .!? followed by whitespace and a capital letter.
	sentenceBoundary = regexp.MustCompile(`[.!?][ \t\r\n]+[A-Z]`)
)

const (
	levelParagraph = iota
	levelSentence
	levelWord
)

// Chunk converts a document's full text into an ordered chunk list.
// Indexes are assigned sequentially across the whole document regardless of
// which degradation level produced a chunk.
func (s *ChunkerService) Chunk(text string) []types.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	b := &chunkBuilder{
		source:        text,
		maxTokens:     s.maxTokens,
		overlapTokens: s.overlapTokens,
	}
	for _, para := range splitParagraphs(text) {
		b.add(para, levelParagraph)
	}
	b.flush()
	return b.chunks
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range paragraphSplitter.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

func splitSentences(paragraph string) []string {
	locs := sentenceBoundary.FindAllStringIndex(paragraph, -1)
	if len(locs) == 0 {
		return []string{paragraph}
	}
	var sentences []string
	prev := 0
	for _, loc := range locs {
		// Keep the terminator with its sentence; the capital letter opens
		// the next one.
		cut := loc[0] + 1
		if sent := strings.TrimSpace(paragraph[prev:cut]); sent != "" {
			sentences = append(sentences, sent)
		}
		prev = loc[1] - 1
	}
	if sent := strings.TrimSpace(paragraph[prev:]); sent != "" {
		sentences = append(sentences, sent)
	}
	return sentences
}

// chunkBuilder accumulates text units into a running buffer and emits
// chunks when the token budget would be exceeded. It tracks approximate
// character offsets by scanning forward through the source text.
type chunkBuilder struct {
	source        string
	maxTokens     int
	overlapTokens int

	chunks    []types.Chunk
	current   string
	startChar int
	cursor    int // forward scan position in source
}

func (b *chunkBuilder) add(unit string, level int) {
	if EstimateTokens(unit) > b.maxTokens {
		// The unit cannot be kept atomic; flush whatever is pending and
		// degrade one granularity level.
		b.flush()
		switch level {
		case levelParagraph:
			for _, sent := range splitSentences(unit) {
				b.add(sent, levelSentence)
			}
		case levelSentence:
			for _, word := range strings.Fields(unit) {
				b.add(word, levelWord)
			}
		default:
			// A single word over the budget cannot be split further.
			off := b.locate(unit)
			b.emit(unit, off)
			return
		}
		b.flush()
		return
	}

	sep := " "
	if level == levelParagraph {
		sep = "\n\n"
	}

	if b.current == "" {
		b.startChar = b.locate(unit)
		b.current = unit
		return
	}

	candidate := b.current + sep + unit
	if EstimateTokens(candidate) <= b.maxTokens {
		b.locate(unit)
		b.current = candidate
		return
	}

	// Budget exceeded: flush and seed the next buffer with the tail of the
	// chunk just written.
	flushedText, flushedStart := b.current, b.startChar
	b.emit(flushedText, flushedStart)
	b.current = ""

	tail := overlapTail(flushedText, b.overlapTokens)
	off := b.locate(unit)
	if tail != "" && EstimateTokens(tail+" "+unit) <= b.maxTokens {
		b.current = tail + " " + unit
		b.startChar = flushedStart + len(flushedText) - len(tail)
		if b.startChar < 0 {
			b.startChar = 0
		}
	} else {
		// Seeding would blow the budget for the very next unit; start clean.
		b.current = unit
		b.startChar = off
	}
}

func (b *chunkBuilder) flush() {
	if b.current == "" {
		return
	}
	b.emit(b.current, b.startChar)
	b.current = ""
}

func (b *chunkBuilder) emit(text string, startChar int) {
	b.chunks = append(b.chunks, types.Chunk{
		Text:       text,
		Index:      len(b.chunks),
		TokenCount: EstimateTokens(text),
		Metadata: types.ChunkMetadata{
			StartChar: startChar,
			EndChar:   startChar + len(text),
		},
	})
}

// locate finds the unit's offset in the source at or after the scan cursor.
// Units are substrings of the source (splitting only ever trims), so this
// normally succeeds; on a miss the cursor position is used as-is.
func (b *chunkBuilder) locate(unit string) int {
	idx := strings.Index(b.source[b.cursor:], unit)
	if idx < 0 {
		return b.cursor
	}
	off := b.cursor + idx
	b.cursor = off + len(unit)
	return off
}

// overlapTail returns the trailing words of text worth at most
// overlapTokens under the token estimate.
func overlapTail(text string, overlapTokens int) string {
	n := int(float64(overlapTokens) / tokensPerWord)
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[len(words)-n:], " ")
}
