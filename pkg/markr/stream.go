package markr

import (
	"context"
	"io"
	"math/big"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"dexswap/pkg/swap"
)

const streamReadChunk = 4096

// UpdateFunc receives the full quote list, re-sorted best-first, after every
// accepted stream event.
type UpdateFunc func(sorted []*Quote) error

// StreamParser incrementally decodes a chunked `data:{json}\n\n` event stream
// into quotes, tracking the best-seen quote as records arrive. Events are
// parsed as soon as they are complete; the parser never waits for the stream
// to close.
type StreamParser struct {
	onUpdate UpdateFunc

	// buffer holds the undecoded remainder of the last chunk; eventBuffer
	// assembles one event's text across chunk boundaries.
	buffer      string
	eventBuffer string

	quotes []*Quote
	best   *Quote
}

// NewStreamParser creates a parser. onUpdate may be nil for callers that only
// want the final list.
func NewStreamParser(onUpdate UpdateFunc) *StreamParser {
	return &StreamParser{onUpdate: onUpdate}
}

// Consume reads the body to completion, emitting updates per accepted event,
// and returns the final sorted quote list. A partial trailing event left in
// the buffer when the stream ends is discarded. Cancellation is cooperative:
// it is honored between reads and before each update delivery.
func (p *StreamParser) Consume(ctx context.Context, body io.Reader) ([]*Quote, error) {
	chunk := make([]byte, streamReadChunk)
	for {
		if ctx.Err() != nil {
			return nil, swap.Abort(ctx.Err())
		}

		n, err := body.Read(chunk)
		if n > 0 {
			if feedErr := p.feed(ctx, chunk[:n]); feedErr != nil {
				return nil, feedErr
			}
		}
		if err == io.EOF {
			return p.Sorted(), nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, swap.Abort(ctx.Err())
			}
			return nil, err
		}
	}
}

// feed decodes one chunk, splitting off complete lines. An empty line
// terminates the event being assembled.
func (p *StreamParser) feed(ctx context.Context, chunk []byte) error {
	p.buffer += string(chunk)

	for {
		idx := strings.IndexByte(p.buffer, '\n')
		if idx < 0 {
			return nil
		}
		line := strings.TrimSuffix(p.buffer[:idx], "\r")
		p.buffer = p.buffer[idx+1:]

		if line == "" {
			if p.eventBuffer == "" {
				continue
			}
			event := p.eventBuffer
			p.eventBuffer = ""
			if err := p.handleEvent(ctx, event); err != nil {
				return err
			}
			continue
		}
		p.eventBuffer += line
	}
}

func (p *StreamParser) handleEvent(ctx context.Context, event string) error {
	payload := strings.TrimPrefix(event, "data:")

	var q Quote
	if err := json.Unmarshal([]byte(payload), &q); err != nil {
		return swap.ErrInvalidQuoteData(err)
	}

	// Stream-end sentinel, not a quote.
	if q.Done {
		return nil
	}
	if q.UUID != "" {
		if _, err := uuid.Parse(q.UUID); err != nil {
			return swap.ErrInvalidQuoteData(err)
		}
	}

	p.quotes = append(p.quotes, &q)
	if p.best == nil || compareAmountOut(&q, p.best) > 0 {
		p.best = &q
	}

	if ctx.Err() != nil {
		return swap.Abort(ctx.Err())
	}
	if p.onUpdate != nil {
		if err := p.onUpdate(p.Sorted()); err != nil {
			return err
		}
	}
	return nil
}

// Best returns the highest-output quote seen so far, or nil.
func (p *StreamParser) Best() *Quote { return p.best }

// Sorted returns a fresh copy of all accepted quotes, descending by amount
// out under unsigned big-integer comparison.
func (p *StreamParser) Sorted() []*Quote {
	out := make([]*Quote, len(p.quotes))
	copy(out, p.quotes)
	sort.SliceStable(out, func(i, j int) bool {
		return compareAmountOut(out[i], out[j]) > 0
	})
	return out
}

// compareAmountOut compares amountOut as unsigned big integers. Unparsable
// amounts compare as zero.
func compareAmountOut(a, b *Quote) int {
	av, ok := new(big.Int).SetString(a.AmountOut, 10)
	if !ok {
		av = new(big.Int)
	}
	bv, ok := new(big.Int).SetString(b.AmountOut, 10)
	if !ok {
		bv = new(big.Int)
	}
	return av.Cmp(bv)
}
