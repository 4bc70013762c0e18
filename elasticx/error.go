package elasticx

import (
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/gridsearch/x/errorx"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	versionConflictErrorType       = "version_conflict_engine_exception"
	resourceAlreadyExistsErrorType = "resource_already_exists_exception"
)

// ErrClientClosed is the cause of every error returned by a Client after Close.
var ErrClientClosed = errors.New("elastic client is closed")

func clientClosedError() error {
	return errorx.UnavailableErrorf("elastic client is closed").WithOriginalError(ErrClientClosed)
}

// withTransportError classifies a failure to reach the cluster at all.
func withTransportError(err error) error {
	return errorx.UnavailableErrorf("elastic cluster is unreachable: %v", err).WithOriginalError(err)
}

// withElasticError classifies a non-2xx response. The body is consumed.
func withElasticError(res *esapi.Response) error {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return withTransportError(err)
	}
	return elasticError(res.StatusCode, body)
}

func elasticError(status int, body []byte) error {
	errType := gjson.GetBytes(body, "error.type").String()
	reason := gjson.GetBytes(body, "error.reason").String()
	if reason == "" {
		reason = gjson.GetBytes(body, "error").String()
	}
	if reason == "" {
		reason = http.StatusText(status)
	}
	return classify(status, errType, reason)
}

func classify(status int, errType, reason string) error {
	switch {
	case errType == versionConflictErrorType || status == http.StatusConflict:
		return errorx.AbortedErrorf("version conflict: %s", reason)
	case errType == resourceAlreadyExistsErrorType:
		return errorx.AlreadyExistsErrorf("%s", reason)
	case status == http.StatusNotFound:
		return errorx.NotFoundErrorf("%s", reason)
	case status == http.StatusBadRequest:
		return errorx.InvalidArgumentErrorf("%s: %s", errType, reason)
	case status == http.StatusTooManyRequests,
		status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return errorx.UnavailableErrorf("%s", reason)
	default:
		return errorx.InternalErrorf("elastic responded with status %d: %s", status, reason)
	}
}

// IsConnectionError reports whether err means the cluster could not be reached,
// including calls made on a closed client.
func IsConnectionError(err error) bool {
	return errorx.IsUnavailableError(err)
}

// IsClientClosedError reports whether err was returned because the client was closed.
func IsClientClosedError(err error) bool {
	return errors.Is(err, ErrClientClosed)
}

// IsVersionConflictError reports whether an optimistic write was rejected.
func IsVersionConflictError(err error) bool {
	return errorx.IsAbortedError(err)
}

// IsQueryError reports whether the cluster rejected a predicate or aggregation as malformed.
func IsQueryError(err error) bool {
	return errorx.IsInvalidArgumentError(err)
}
