package bedrock

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/davidbz/basalt/internal/domain"
)

// classifyError maps SDK failures into the domain error taxonomy so callers
// can classify with errors.Is without importing AWS types.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var accessDenied *types.AccessDeniedException
	if errors.As(err, &accessDenied) {
		return fmt.Errorf("%w: %s (request model access in the Bedrock console)",
			domain.ErrAuthorization, accessDenied.ErrorMessage())
	}

	var validation *types.ValidationException
	if errors.As(err, &validation) {
		return fmt.Errorf("%w: %s", domain.ErrValidation, validation.ErrorMessage())
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnauthorizedException":
			return fmt.Errorf("%w: %s", domain.ErrAuthorization, apiErr.ErrorMessage())
		case "ValidationException":
			return fmt.Errorf("%w: %s", domain.ErrValidation, apiErr.ErrorMessage())
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrTransport, err)
}
