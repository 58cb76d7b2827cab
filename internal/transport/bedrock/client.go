// Package bedrock implements the domain.ModelInvoker interface on top of the
// AWS Bedrock Runtime API. It converts SDK failures into the domain error
// taxonomy and exposes response streams as chunk cursors. Retries are owned
// entirely by the SDK's configured retryer.
package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/davidbz/basalt/internal/domain"
	"github.com/davidbz/basalt/internal/observability"
)

const (
	transportName = "bedrock"
	contentType   = "application/json"
)

// Client implements the domain.ModelInvoker interface for AWS Bedrock.
type Client struct {
	runtime *bedrockruntime.Client
	name    string
}

// NewClient creates a Bedrock transport using the standard AWS credential
// chain (env, shared config, instance role).
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*bedrockruntime.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *bedrockruntime.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &Client{
		runtime: bedrockruntime.NewFromConfig(awsCfg, clientOpts...),
		name:    transportName,
	}, nil
}

// Invoke performs a single blocking model invocation.
func (c *Client) Invoke(ctx context.Context, modelID string, payload []byte) ([]byte, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling Bedrock InvokeModel")

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        payload,
		ContentType: aws.String(contentType),
		Accept:      aws.String(contentType),
	})
	if err != nil {
		logger.Error("Bedrock InvokeModel failed", observability.Error(err))
		return nil, classifyError(err)
	}

	return out.Body, nil
}

// InvokeStream performs a streaming invocation. The returned cursor owns the
// event stream; its Close releases the connection on every exit path.
func (c *Client) InvokeStream(ctx context.Context, modelID string, payload []byte) (domain.ChunkStream, error) {
	logger := observability.FromContext(ctx)
	logger.Debug("calling Bedrock InvokeModelWithResponseStream")

	out, err := c.runtime.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(modelID),
		Body:        payload,
		ContentType: aws.String(contentType),
		Accept:      aws.String(contentType),
	})
	if err != nil {
		logger.Error("Bedrock stream invocation failed", observability.Error(err))
		return nil, classifyError(err)
	}

	return &chunkStream{inner: out.GetStream()}, nil
}

// Name returns the transport identifier.
func (c *Client) Name() string {
	return c.name
}

// chunkStream adapts the SDK event stream to the domain.ChunkStream cursor.
type chunkStream struct {
	inner *bedrockruntime.InvokeModelWithResponseStreamEventStream
	cur   []byte
	err   error
}

func (s *chunkStream) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}

	for {
		select {
		case <-ctx.Done():
			s.err = fmt.Errorf("%w: %v", domain.ErrTransport, ctx.Err())
			return false
		case event, ok := <-s.inner.Events():
			if !ok {
				if streamErr := s.inner.Err(); streamErr != nil {
					s.err = classifyError(streamErr)
				}
				return false
			}

			chunk, isChunk := event.(*types.ResponseStreamMemberChunk)
			if !isChunk {
				// Unknown event member, skip.
				continue
			}

			s.cur = chunk.Value.Bytes
			return true
		}
	}
}

func (s *chunkStream) Chunk() []byte {
	return s.cur
}

func (s *chunkStream) Err() error {
	return s.err
}

func (s *chunkStream) Close() error {
	return s.inner.Close()
}
