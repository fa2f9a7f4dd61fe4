package errors

import (
	"context"
	goerrors "errors"
)

// MapHTTPStatus translates an internal error into the HTTP status code the
// retrieval API should return for it. Mirrors the code-to-protocol-error
// mapping pattern used for MCP error codes, retargeted at plain HTTP status.
func MapHTTPStatus(err error) int {
	if err == nil {
		return 200
	}

	var re *RetrievalError
	if goerrors.As(err, &re) {
		switch re.Category {
		case CategoryValidation:
			return 400
		case CategoryNetwork:
			return 503
		default:
			return 500
		}
	}

	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return 503
	case goerrors.Is(err, context.Canceled):
		return 499
	case goerrors.Is(err, ErrCircuitOpen):
		return 503
	default:
		return 500
	}
}
