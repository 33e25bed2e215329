package inference

import "context"

// Asker answers a free-text question. Implementations never fail: transport
// problems and odd payloads are turned into a displayable string.
type Asker interface {
	Ask(ctx context.Context, question string) string
}

// AskerFunc adapts a plain function to the Asker interface.
type AskerFunc func(ctx context.Context, question string) string

func (f AskerFunc) Ask(ctx context.Context, question string) string {
	return f(ctx, question)
}
