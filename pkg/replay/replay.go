// Package replay delivers an already complete text as a sequence of growing
// prefixes, one word at a time, with a fixed delay between steps.
package replay

import (
	"context"
	"strings"
	"time"
)

// Sink receives each prefix. The last prefix delivered equals the full text.
type Sink func(prefix string)

// Replayer paces word-by-word delivery.
type Replayer struct {
	Delay time.Duration
}

// Prefixes enumerates the prefixes a replay of text delivers. Words are split on
// single spaces, so runs of spaces and newlines are preserved inside words.
func Prefixes(text string) []string {
	words := strings.Split(text, " ")
	out := make([]string, len(words))

	var b strings.Builder
	b.Grow(len(text))
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
		out[i] = b.String()
	}
	return out
}

// Replay delivers the prefixes of text to sink. The context is checked before every
// step; once it is done no further prefix is delivered and its error is returned.
func (r Replayer) Replay(ctx context.Context, text string, sink Sink) error {
	prefixes := Prefixes(text)

	var timer *time.Timer
	if r.Delay > 0 {
		timer = time.NewTimer(r.Delay)
		timer.Stop()
		defer timer.Stop()
	}

	for i, p := range prefixes {
		if err := ctx.Err(); err != nil {
			return err
		}
		sink(p)

		if timer == nil || i == len(prefixes)-1 {
			continue
		}
		timer.Reset(r.Delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// Stream is the channel form of Replay. The channel is closed when the replay
// completes or the context is done.
func (r Replayer) Stream(ctx context.Context, text string) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		_ = r.Replay(ctx, text, func(prefix string) {
			select {
			case ch <- prefix:
			case <-ctx.Done():
			}
		})
	}()
	return ch
}
