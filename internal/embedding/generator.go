// Package embedding turns chunk texts into fixed-dimension vectors via a
// remote embedding model, batching requests to bound their size.
package embedding

import (
	"context"
	"fmt"
)

// BatchSize bounds how many chunk texts go into one remote call.
const BatchSize = 20

// Client is the remote embedding call, satisfied by ai.GeminiService.
type Client interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator batches texts and preserves input order in its output. A
// batch-level failure surfaces as an error for the whole call: no partial
// vectors are returned, so callers never persist a truncated batch.
type Generator struct {
	client     Client
	dimensions int
}

func NewGenerator(client Client, dimensions int) *Generator {
	return &Generator{client: client, dimensions: dimensions}
}

// Embed returns one vector per input text, in input order.
func (g *Generator) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))

	for begin := 0; begin < len(texts); begin += BatchSize {
		end := begin + BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := g.client.EmbedBatch(ctx, texts[begin:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d failed: %w", begin, end-1, err)
		}
		if len(batch) != end-begin {
			return nil, fmt.Errorf("embedding batch %d-%d returned %d vectors for %d texts", begin, end-1, len(batch), end-begin)
		}

		for i, vec := range batch {
			if len(vec) != g.dimensions {
				return nil, fmt.Errorf("embedding %d has %d dimensions, want %d", begin+i, len(vec), g.dimensions)
			}
		}

		vectors = append(vectors, batch...)
	}

	return vectors, nil
}
