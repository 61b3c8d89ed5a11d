package redact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

var (
	// ErrRequestPending rejects a request issued while another is in flight.
	ErrRequestPending = errors.New("an inpaint request is already in flight")
	// ErrAbandoned is returned to a request whose result was discarded by Abandon.
	ErrAbandoned = errors.New("inpaint result abandoned")
	// ErrEmptyPayload rejects requests missing the image or mask.
	ErrEmptyPayload = errors.New("inpaint request needs both image and mask")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ServiceError means the service understood the request and rejected it.
// Retrying the same payload will not help.
type ServiceError struct {
	Status int
	Detail string
}

func (e *ServiceError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("redaction service returned %d", e.Status)
	}
	return fmt.Sprintf("redaction service returned %d: %s", e.Status, e.Detail)
}

// TransportError covers network failures and responses that could not be
// decoded. The request may succeed if retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable always reports true.
func (e *TransportError) Retryable() bool { return true }

// IsRetryable reports whether err is a TransportError.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

type errorBody struct {
	Detail jsoniter.RawMessage `json:"detail"`
}

// parseServiceError extracts {"detail": ...} from a failed response. FastAPI
// style validation errors carry a list there, which is kept as raw JSON.
func parseServiceError(resp *resty.Response) error {
	body := resp.Body()
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil {
			return &ServiceError{Status: resp.StatusCode(), Detail: s}
		}
		return &ServiceError{Status: resp.StatusCode(), Detail: string(eb.Detail)}
	}
	return &ServiceError{Status: resp.StatusCode(), Detail: strings.TrimSpace(string(body))}
}
