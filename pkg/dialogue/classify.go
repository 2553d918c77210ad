package dialogue

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/aretw0/parley/pkg/domain"
)

var errEmptyReply = errors.New("backend returned no text")

// Classify maps a transport-level failure to a BackendErrorKind.
// Providers with typed API errors should try ClassifyStatus first.
func Classify(ctx context.Context, err error) domain.BackendErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return domain.BackendTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.BackendTimeout
	}
	return domain.BackendUnavailable
}

// ClassifyStatus maps an HTTP status returned by a provider API.
func ClassifyStatus(status int) domain.BackendErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.BackendAuth
	case http.StatusTooManyRequests:
		return domain.BackendRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return domain.BackendTimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.BackendMalformed
	default:
		return domain.BackendUnavailable
	}
}
