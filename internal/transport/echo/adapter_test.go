package echo_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/basalt/internal/codec"
	"github.com/davidbz/basalt/internal/domain"
	"github.com/davidbz/basalt/internal/transport/echo"
)

// Round-trip property: for every catalog model, a payload built by the codec
// and invoked against the echo transport normalizes back to the prompt.
func TestClient_Invoke_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := echo.NewClient()
	c := codec.New()

	for _, entry := range domain.DefaultCatalog().List() {
		t.Run(entry.ID, func(t *testing.T) {
			req := &domain.GenerationRequest{
				Model:       entry.ID,
				Prompt:      "the quick brown fox",
				Temperature: 0.7,
				MaxTokens:   100,
			}

			payload, err := c.BuildPayload(entry, req)
			require.NoError(t, err)

			body, err := client.Invoke(ctx, entry.ID, payload)
			require.NoError(t, err)

			out, err := c.ParseResponse(entry, body)
			require.NoError(t, err)
			require.Equal(t, "the quick brown fox", out.Text)
			require.Equal(t, 4, out.InputTokens)
			require.Equal(t, 4, out.OutputTokens)
		})
	}
}

func TestClient_InvokeStream(t *testing.T) {
	ctx := context.Background()
	client := echo.NewClient()
	c := codec.New()

	for _, entry := range domain.DefaultCatalog().List() {
		t.Run(entry.ID, func(t *testing.T) {
			req := &domain.GenerationRequest{
				Model:     entry.ID,
				Prompt:    "one two three",
				MaxTokens: 100,
			}

			payload, err := c.BuildPayload(entry, req)
			require.NoError(t, err)

			stream, err := client.InvokeStream(ctx, entry.ID, payload)
			require.NoError(t, err)
			defer stream.Close()

			var text strings.Builder
			var sawDone, sawUsage bool
			for stream.Next(ctx) {
				delta, parseErr := c.ParseChunk(entry, stream.Chunk())
				require.NoError(t, parseErr)
				text.WriteString(delta.Text)
				if delta.Done {
					sawDone = true
				}
				if delta.HasUsage {
					sawUsage = true
					require.Equal(t, 3, delta.InputTokens)
					require.Equal(t, 3, delta.OutputTokens)
				}
			}

			require.NoError(t, stream.Err())
			require.Equal(t, "one two three", text.String())
			require.True(t, sawDone)
			require.True(t, sawUsage)
		})
	}
}

func TestClient_Invoke_UnknownPrefix(t *testing.T) {
	client := echo.NewClient()

	_, err := client.Invoke(context.Background(), "mistral.mixtral-8x7b", []byte(`{}`))
	require.ErrorIs(t, err, domain.ErrUnsupportedFamily)
}

func TestClient_InvokeStream_Cancellation(t *testing.T) {
	client := echo.NewClient()
	c := codec.New()

	entry, err := domain.DefaultCatalog().Lookup("amazon.titan-text-express-v1")
	require.NoError(t, err)

	payload, err := c.BuildPayload(entry, &domain.GenerationRequest{
		Model:     entry.ID,
		Prompt:    "a b c d e",
		MaxTokens: 100,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.InvokeStream(ctx, entry.ID, payload)
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Next(ctx))
	cancel()

	require.False(t, stream.Next(ctx))
	require.ErrorIs(t, stream.Err(), domain.ErrTransport)
}
