package glossa

import "context"

// Translator performs the actual text translation. Implementations may
// batch, rate-limit or call out to remote services; the engine issues one
// call per unit version and never retries a failure. Priority ranges from
// 0 (lowest) to 4 (on-screen text). The context is cancelled when the
// engine closes.
type Translator interface {
	Translate(ctx context.Context, text string, priority int) (string, error)
}

// TranslatorFunc adapts a plain function to the Translator interface.
type TranslatorFunc func(ctx context.Context, text string, priority int) (string, error)

// Translate calls f.
func (f TranslatorFunc) Translate(ctx context.Context, text string, priority int) (string, error) {
	return f(ctx, text, priority)
}
