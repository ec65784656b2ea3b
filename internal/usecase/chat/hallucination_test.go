package chat

import (
	"testing"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func chunksOf(texts ...string) []entity.ScoredChunk {
	out := make([]entity.ScoredChunk, len(texts))
	for i, text := range texts {
		out[i] = entity.ScoredChunk{Ref: entity.ChunkRef{ChunkText: text}, Score: 0.8}
	}
	return out
}

func TestDetectHallucinationUncertaintyPhrases(t *testing.T) {
	chunks := chunksOf("The experiment ran for three weeks under controlled conditions.")

	flagged := []string{
		"I cannot find this information in the document.",
		"The answer is unclear from the provided material.",
		"That date is not mentioned anywhere in the text.",
		"There is insufficient information to answer precisely.",
	}
	for _, answer := range flagged {
		assert.True(t, detectHallucination(answer, chunks), "answer %q", answer)
	}
}

func TestDetectHallucinationLowOverlap(t *testing.T) {
	chunks := chunksOf("Mitochondria produce ATP through cellular respiration in eukaryotic cells.")

	// A long answer sharing almost no vocabulary with the context.
	answer := "Napoleon crossed the Alps during winter with his entire army and artillery."
	assert.True(t, detectHallucination(answer, chunks))
}

func TestDetectHallucinationGroundedAnswer(t *testing.T) {
	chunks := chunksOf("Mitochondria produce ATP through cellular respiration in eukaryotic cells.")

	answer := "Mitochondria produce ATP through cellular respiration, powering the cell."
	assert.False(t, detectHallucination(answer, chunks))
}

func TestDetectHallucinationShortAnswerNotJudged(t *testing.T) {
	chunks := chunksOf("The committee approved the budget in March.")

	// Too short for the overlap heuristic to be meaningful.
	assert.False(t, detectHallucination("Approved in March.", chunks))
}

func TestDetectHallucinationNoContext(t *testing.T) {
	long := "This is a reasonably long answer that was produced without any retrieved context at all."
	assert.False(t, detectHallucination(long, nil))
}
