package chat

// EventType tags one frame of the streaming wire contract.
type EventType string

const (
	// EventMetadata carries retrieval stats. Always the first frame.
	EventMetadata EventType = "metadata"
	// EventText carries one answer fragment.
	EventText EventType = "text"
	// EventComplete is the terminal success frame.
	EventComplete EventType = "complete"
	// EventError is the terminal failure frame.
	EventError EventType = "error"
)

// Event is one frame sent to the client.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// Metadata is the payload of the metadata frame.
type Metadata struct {
	DocumentID             string  `json:"document_id"`
	Query                  string  `json:"query"`
	IsRelevant             bool    `json:"is_relevant"`
	ContextChunksRetrieved int     `json:"context_chunks_retrieved"`
	TopSimilarityScore     float64 `json:"top_similarity_score"`
}

type completePayload struct {
	Status  string `json:"status"`
	Flagged bool   `json:"flagged,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}
