package lecto

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind tags an HTTP-level failure returned by Lecto.
type ErrorKind int

const (
	KindValidationFailed ErrorKind = iota + 1
	KindBadRequest
	KindServerFault
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidationFailed:
		return "validation_failed"
	case KindBadRequest:
		return "bad_request"
	case KindServerFault:
		return "server_fault"
	case KindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is; only the Kind is compared.
var (
	ErrValidationFailed = &APIError{Kind: KindValidationFailed}
	ErrBadRequest       = &APIError{Kind: KindBadRequest}
	ErrServerFault      = &APIError{Kind: KindServerFault}
	ErrUnknown          = &APIError{Kind: KindUnknown}
)

// APIError is a non-2xx answer from Lecto. It carries everything needed to
// replay the failing call: status, serialized request body and raw response.
type APIError struct {
	Kind     ErrorKind
	Status   int
	Request  string
	Response string
}

func (e *APIError) Error() string {
	if e.Kind == KindUnknown {
		return fmt.Sprintf("lecto: unexpected status %d (req: %s) res: %q", e.Status, e.Request, e.Response)
	}
	return fmt.Sprintf("lecto: %s status %d res: %q", e.Kind, e.Status, e.Response)
}

func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// DecodeError means Lecto answered 2xx but the body did not match the
// expected record.
type DecodeError struct {
	Status int
	Body   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("lecto: decode %d response: %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Classify maps a response status onto the error taxonomy. It returns nil
// for 2xx so the caller can go on decoding the body.
func Classify(status int, request string, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var kind ErrorKind
	switch status {
	case http.StatusUnprocessableEntity:
		kind = KindValidationFailed
	case http.StatusBadRequest:
		kind = KindBadRequest
	case http.StatusInternalServerError:
		kind = KindServerFault
	default:
		kind = KindUnknown
	}

	return &APIError{
		Kind:     kind,
		Status:   status,
		Request:  request,
		Response: string(body),
	}
}

// KindOf reports the kind of an *APIError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}
