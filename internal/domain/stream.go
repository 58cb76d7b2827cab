package domain

import (
	"context"
	"strings"
	"time"
)

// GenerationStream is a cursor over normalized text fragments of one
// streaming generation. Consumption is pull-based: each Next call blocks
// until a fragment arrives or the stream terminates. The stream is finite
// and not restartable.
//
// Usage is recorded exactly once, when the stream completes cleanly. A
// stream abandoned early (Close before completion) or terminated by an
// error records nothing.
type GenerationStream struct {
	entry      ModelEntry
	codec      PayloadCodec
	raw        ChunkStream
	onComplete func(*GenerationResult)
	start      time.Time

	text         strings.Builder
	fragment     string
	inputTokens  int
	outputTokens int
	hasUsage     bool

	done     bool
	finished bool
	err      error
	result   *GenerationResult
}

func newGenerationStream(
	entry ModelEntry,
	codec PayloadCodec,
	raw ChunkStream,
	onComplete func(*GenerationResult),
) *GenerationStream {
	return &GenerationStream{
		entry:      entry,
		codec:      codec,
		raw:        raw,
		onComplete: onComplete,
		start:      time.Now(),
	}
}

// Next advances to the next text fragment. It returns false when the stream
// has terminated; check Err to distinguish completion from failure.
func (s *GenerationStream) Next(ctx context.Context) bool {
	if s.finished || s.err != nil {
		return false
	}
	if s.done {
		s.finalize()
		return false
	}

	for {
		if !s.raw.Next(ctx) {
			if rawErr := s.raw.Err(); rawErr != nil {
				s.err = rawErr
				_ = s.raw.Close()
				return false
			}
			// Stream ended without an explicit done marker: finalize with
			// whatever arrived so far.
			s.finalize()
			return false
		}

		delta, err := s.codec.ParseChunk(s.entry, s.raw.Chunk())
		if err != nil {
			s.err = err
			_ = s.raw.Close()
			return false
		}

		if delta.HasUsage {
			s.inputTokens = delta.InputTokens
			s.outputTokens = delta.OutputTokens
			s.hasUsage = true
		}
		if delta.Done {
			s.done = true
		}

		if delta.Text != "" {
			s.text.WriteString(delta.Text)
			s.fragment = delta.Text
			return true
		}

		if s.done {
			s.finalize()
			return false
		}
		// Metadata-only chunk: keep pulling.
	}
}

// Fragment returns the current text fragment.
func (s *GenerationStream) Fragment() string {
	return s.fragment
}

// Err returns the terminal error, if any, once Next has returned false.
func (s *GenerationStream) Err() error {
	return s.err
}

// Result returns the final result once the stream completed cleanly.
func (s *GenerationStream) Result() (*GenerationResult, bool) {
	if !s.finished {
		return nil, false
	}
	return s.result, true
}

// Close releases the underlying connection. Safe to call at any point and
// more than once; closing before completion discards the call unrecorded.
func (s *GenerationStream) Close() error {
	return s.raw.Close()
}

// finalize builds the final result and records usage exactly once. A final
// chunk with no usage metadata yields zero token counts flagged as a lower
// bound, never a failed stream.
func (s *GenerationStream) finalize() {
	if s.finished {
		return
	}
	s.finished = true
	_ = s.raw.Close()

	res := &GenerationResult{
		Model:           s.entry.ID,
		Text:            s.text.String(),
		InputTokens:     s.inputTokens,
		OutputTokens:    s.outputTokens,
		Cost:            s.entry.Cost(s.inputTokens, s.outputTokens),
		LatencyMS:       time.Since(s.start).Milliseconds(),
		FinishTime:      time.Now(),
		TokensEstimated: !s.hasUsage,
	}
	s.result = res

	if s.onComplete != nil {
		s.onComplete(res)
	}
}
