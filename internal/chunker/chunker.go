// Package chunker splits a normalized transcript into overlapping,
// sentence-bounded windows sized for embedding. Chunking is deterministic
// and pure: the same transcript always yields the same boundaries, which
// is what makes delete-then-reinsert reprocessing safe.
package chunker

import (
	"strings"
	"unicode"
)

const (
	// Target window is 500-1000 words. The floor is enforced by stretching
	// the final chunk's overlap; sentence boundaries still win, so a single
	// run-on sentence can exceed the max and a short transcript can fall
	// under the min.
	MinChunkWords = 500
	MaxChunkWords = 1000

	// Consecutive chunks share roughly this many trailing words.
	OverlapWords = 100
)

type sentence struct {
	text  string
	words int
}

// Chunk splits transcript text into ordered chunk texts. Transcripts that
// fit a single window produce exactly one chunk containing the whole text.
func Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)

	total := 0
	for _, s := range sentences {
		total += s.words
	}
	if total <= MaxChunkWords {
		return []string{joinSentences(sentences)}
	}

	var chunks []string
	start := 0
	for start < len(sentences) {
		end := start
		words := 0
		for end < len(sentences) {
			if end > start && words+sentences[end].words > MaxChunkWords {
				break
			}
			words += sentences[end].words
			end++
		}

		chunks = append(chunks, joinSentences(sentences[start:end]))

		if end >= len(sentences) {
			break
		}

		start = overlapStart(sentences, start, end)
	}

	return chunks
}

// overlapStart picks the first sentence of the next chunk so the trailing
// sentences of the previous chunk covering at least OverlapWords are
// repeated. When the rest of the transcript would leave the final chunk
// under MinChunkWords, the overlap extends further back to pad it up to
// the floor. The start index always advances, so chunking terminates.
func overlapStart(sentences []sentence, start, end int) int {
	overlap := 0
	idx := end
	for idx > start+1 && overlap < OverlapWords {
		overlap += sentences[idx-1].words
		idx--
	}

	remaining := overlap
	for i := end; i < len(sentences); i++ {
		remaining += sentences[i].words
	}
	for idx > start+1 && remaining < MinChunkWords {
		idx--
		remaining += sentences[idx].words
	}

	return idx
}

func joinSentences(sentences []sentence) string {
	parts := make([]string, len(sentences))
	for i, s := range sentences {
		parts[i] = s.text
	}
	return strings.Join(parts, " ")
}

// splitSentences breaks text on terminal punctuation followed by
// whitespace and an upper-case or digit start. Transcripts with no
// terminal punctuation at all come back as one sentence.
func splitSentences(text string) []sentence {
	runes := []rune(text)
	var sentences []sentence
	begin := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		// Swallow runs of terminal punctuation and closing quotes.
		j := i + 1
		for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?' || runes[j] == '"' || runes[j] == '\'') {
			j++
		}
		if j < len(runes) && !unicode.IsSpace(runes[j]) {
			continue
		}

		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		if k < len(runes) && !unicode.IsUpper(runes[k]) && !unicode.IsDigit(runes[k]) && runes[k] != '"' {
			continue
		}

		raw := strings.TrimSpace(string(runes[begin:j]))
		if raw != "" {
			sentences = append(sentences, sentence{text: raw, words: len(strings.Fields(raw))})
		}
		begin = k
		i = j - 1
	}

	if begin < len(runes) {
		raw := strings.TrimSpace(string(runes[begin:]))
		if raw != "" {
			sentences = append(sentences, sentence{text: raw, words: len(strings.Fields(raw))})
		}
	}

	return sentences
}

// WordCount counts whitespace-delimited words, matching the accounting
// used for chunk sizing.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
