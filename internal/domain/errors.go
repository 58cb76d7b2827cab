package domain

import "errors"

// Error kinds are sentinels so callers can classify with errors.Is while the
// wrapped message keeps the underlying detail. No error is retried here;
// retry policy belongs to the transport layer.
var (
	// ErrUnknownModel indicates a model id that is not in the catalog.
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnsupportedFamily indicates a catalog/codec mismatch. This is a
	// configuration bug, not a user error.
	ErrUnsupportedFamily = errors.New("unsupported model family")

	// ErrTransport indicates a connectivity or service failure.
	ErrTransport = errors.New("transport failure")

	// ErrAuthorization indicates the caller lacks access to the requested
	// model. Remediation: request model access in the Bedrock console.
	ErrAuthorization = errors.New("model access denied")

	// ErrValidation indicates the endpoint rejected the payload, or the
	// request failed local validation before dispatch.
	ErrValidation = errors.New("invalid request")

	// ErrCacheMiss indicates no cached result exists for a request.
	ErrCacheMiss = errors.New("cache miss")
)
