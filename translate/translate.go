// Package translate provides ready-made Translator implementations and
// combinators: a phrase dictionary keyed by language tags, a marker
// translator for visualizing the translation flow, and wrappers adding
// concurrency limits and latency to an existing translator.
package translate

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/text/language"

	"github.com/calyptra/glossa"
)

// Dictionary is a set of phrase tables keyed by target language. Lookup
// is exact on the whitespace-trimmed, case-folded phrase; phrases without
// an entry pass through unchanged.
type Dictionary struct {
	mu      sync.RWMutex
	tags    []language.Tag
	tables  []map[string]string
	matcher language.Matcher
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{}
}

// Add registers a phrase table for a target language, merging with any
// table already present for the same tag. Phrase keys are case-folded.
func (d *Dictionary) Add(tag language.Tag, entries map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := -1
	for i, t := range d.tags {
		if t == tag {
			idx = i
			break
		}
	}
	if idx < 0 {
		d.tags = append(d.tags, tag)
		d.tables = append(d.tables, make(map[string]string))
		idx = len(d.tags) - 1
		d.matcher = language.NewMatcher(d.tags)
	}
	for k, v := range entries {
		d.tables[idx][strings.ToLower(k)] = v
	}
}

// For returns a Translator targeting the registered language closest to
// tag. Matching follows the usual tag hierarchy, so en-US resolves to an
// en table.
func (d *Dictionary) For(tag language.Tag) glossa.Translator {
	return glossa.TranslatorFunc(func(_ context.Context, text string, _ int) (string, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if len(d.tags) == 0 {
			return text, nil
		}
		_, idx, _ := d.matcher.Match(tag)
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return text, nil
		}
		repl, ok := d.tables[idx][strings.ToLower(trimmed)]
		if !ok {
			return text, nil
		}
		// Surrounding whitespace carries layout; keep it.
		return strings.Replace(text, trimmed, repl, 1), nil
	})
}

// Marked returns a translator that wraps content in the given markers.
// Useful for making the translation flow visible without a real backend.
func Marked(prefix, suffix string) glossa.Translator {
	return glossa.TranslatorFunc(func(_ context.Context, text string, _ int) (string, error) {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return text, nil
		}
		return strings.Replace(text, trimmed, prefix+trimmed+suffix, 1), nil
	})
}

// Limit caps the number of in-flight calls to inner at n. Calls beyond
// the cap wait for a slot or for their context to end.
func Limit(inner glossa.Translator, n int64) glossa.Translator {
	sem := semaphore.NewWeighted(n)
	return glossa.TranslatorFunc(func(ctx context.Context, text string, priority int) (string, error) {
		if err := sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer sem.Release(1)
		return inner.Translate(ctx, text, priority)
	})
}

// Delay adds fixed latency before each call to inner. The wait ends early
// when the context does.
func Delay(inner glossa.Translator, d time.Duration) glossa.Translator {
	return glossa.TranslatorFunc(func(ctx context.Context, text string, priority int) (string, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return inner.Translate(ctx, text, priority)
	})
}
