package chat

import (
	"strings"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
)

// Advisory hallucination heuristic. A flagged answer is annotated,
// never discarded or rewritten.
var uncertaintyPhrases = []string{
	"i cannot find", "not in the document", "not mentioned", "unclear",
	"not certain", "unable to determine", "not specified", "insufficient information",
}

const (
	// Answers shorter than this are too small to judge by overlap.
	minAnswerLenForOverlap = 50
	// Fewer shared words than this between answer and context is
	// suspicious for a long answer.
	minWordOverlap = 3
)

// detectHallucination flags an answer that admits uncertainty or that
// shares almost no vocabulary with the retrieved context.
func detectHallucination(answer string, chunks []entity.ScoredChunk) bool {
	lower := strings.ToLower(answer)

	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}

	if len(chunks) == 0 || len(answer) <= minAnswerLenForOverlap {
		return false
	}

	contextWords := make(map[string]struct{})
	for _, c := range chunks {
		for _, w := range strings.Fields(strings.ToLower(c.Ref.ChunkText)) {
			contextWords[w] = struct{}{}
		}
	}

	overlap := 0
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(lower) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := contextWords[w]; ok {
			overlap++
			if overlap >= minWordOverlap {
				return false
			}
		}
	}
	return true
}
