package generation

import "context"

// Fragment is one unit of a generation stream: a piece of answer text,
// or a terminal error. After a Fragment with Err != nil, or after the
// channel closes, no further fragments arrive.
type Fragment struct {
	Text string
	Err  error
}

// Generator is the external text-generation collaborator: given a
// context block and a question it produces a lazy, ordered, finite
// sequence of text fragments. Cancelling the context abandons the
// underlying call.
type Generator interface {
	Generate(ctx context.Context, contextBlock, question string) (<-chan Fragment, error)
}
