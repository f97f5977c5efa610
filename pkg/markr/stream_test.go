package markr

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexswap/pkg/swap"
)

func quoteEvent(aggregator, amountOut string) string {
	return `data:{"uuid":"2b8ef573-c0c2-45d6-8c51-1f6c3bd1b240","aggregator":{"id":"` + aggregator + `","name":"` + aggregator + `"},"tokenIn":"0x01","tokenInDecimals":18,"amountIn":"1000","tokenOut":"0x02","tokenOutDecimals":6,"amountOut":"` + amountOut + `"}` + "\n\n"
}

func TestStreamParserTracksBestAcrossEvents(t *testing.T) {
	stream := quoteEvent("odos", "100") +
		quoteEvent("kyber", "150") +
		quoteEvent("oneinch", "120") +
		"data:{\"done\":true}\n\n"

	var bestProgression []string
	parser := NewStreamParser(func(sorted []*Quote) error {
		bestProgression = append(bestProgression, sorted[0].AmountOut)
		return nil
	})

	quotes, err := parser.Consume(context.Background(), strings.NewReader(stream))
	require.NoError(t, err)

	// The done sentinel never appears as a quote.
	require.Len(t, quotes, 3)
	assert.Equal(t, []string{"150", "120", "100"}, []string{
		quotes[0].AmountOut, quotes[1].AmountOut, quotes[2].AmountOut,
	})
	assert.Equal(t, "kyber", quotes[0].Aggregator.Name)

	// Each update sees the ranking as of that event.
	assert.Equal(t, []string{"100", "150", "150"}, bestProgression)
	assert.Equal(t, "150", parser.Best().AmountOut)
}

func TestStreamParserHandlesChunkBoundaries(t *testing.T) {
	stream := quoteEvent("odos", "100") + quoteEvent("kyber", "150")

	// One byte per read: every event spans many chunk boundaries.
	parser := NewStreamParser(nil)
	quotes, err := parser.Consume(context.Background(), iotest.OneByteReader(strings.NewReader(stream)))
	require.NoError(t, err)

	require.Len(t, quotes, 2)
	assert.Equal(t, "150", quotes[0].AmountOut)
	assert.Equal(t, "100", quotes[1].AmountOut)
}

func TestStreamParserCRLFLines(t *testing.T) {
	stream := strings.ReplaceAll(quoteEvent("odos", "100"), "\n", "\r\n")

	parser := NewStreamParser(nil)
	quotes, err := parser.Consume(context.Background(), strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "100", quotes[0].AmountOut)
}

func TestStreamParserDiscardsPartialTrailingEvent(t *testing.T) {
	// The second event never gets its terminating blank line.
	stream := quoteEvent("odos", "100") + `data:{"uuid":"2b8ef573-c0c2-45d6-8c51-1f6c3bd1b240","amountOut":"999"`

	parser := NewStreamParser(nil)
	quotes, err := parser.Consume(context.Background(), strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "100", quotes[0].AmountOut)
}

func TestStreamParserMalformedEvent(t *testing.T) {
	tests := []struct {
		name   string
		stream string
	}{
		{"broken json", "data:{not json}\n\n"},
		{"bad uuid", `data:{"uuid":"not-a-uuid","amountOut":"100"}` + "\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewStreamParser(nil)
			_, err := parser.Consume(context.Background(), strings.NewReader(tt.stream))
			assert.True(t, errors.Is(err, &swap.Error{Kind: swap.KindInvalidQuoteData}))
		})
	}
}

func TestStreamParserSortsUnparsableAmountsLast(t *testing.T) {
	stream := `data:{"uuid":"2b8ef573-c0c2-45d6-8c51-1f6c3bd1b240","amountOut":""}` + "\n\n" +
		quoteEvent("kyber", "150")

	parser := NewStreamParser(nil)
	quotes, err := parser.Consume(context.Background(), strings.NewReader(stream))
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "150", quotes[0].AmountOut)
}

func TestStreamParserAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	parser := NewStreamParser(func([]*Quote) error {
		cancel()
		return nil
	})

	stream := quoteEvent("odos", "100") + quoteEvent("kyber", "150")
	_, err := parser.Consume(ctx, strings.NewReader(stream))
	assert.True(t, swap.IsAborted(err))
}

func TestStreamParserOnUpdateErrorStopsStream(t *testing.T) {
	stop := errors.New("stop")
	parser := NewStreamParser(func([]*Quote) error { return stop })

	_, err := parser.Consume(context.Background(), strings.NewReader(quoteEvent("odos", "100")))
	assert.ErrorIs(t, err, stop)
}

func TestStreamParserSortedReturnsFreshCopy(t *testing.T) {
	parser := NewStreamParser(nil)
	_, err := parser.Consume(context.Background(), strings.NewReader(
		quoteEvent("odos", "100")+quoteEvent("kyber", "150")))
	require.NoError(t, err)

	first := parser.Sorted()
	first[0], first[1] = first[1], first[0]

	second := parser.Sorted()
	assert.Equal(t, "150", second[0].AmountOut)
}

func TestStreamParserPropagatesReadError(t *testing.T) {
	readErr := errors.New("connection reset")
	parser := NewStreamParser(nil)
	_, err := parser.Consume(context.Background(), iotest.ErrReader(readErr))
	assert.ErrorIs(t, err, readErr)
}
