package response

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a failed response.
type Kind string

const (
	// KindNotFound means the backend reported 404.
	KindNotFound Kind = "not_found"

	// KindNotOK means the backend reported a status outside [200,299] other than 404.
	KindNotOK Kind = "not_ok"

	// KindParseFailure means the body was JSON but not a document.
	KindParseFailure Kind = "parse_failure"

	// KindMiscellaneous covers undecodable bodies and anything unexpected.
	KindMiscellaneous Kind = "miscellaneous"
)

// ClassifiedError is the error returned for every failed response.
type ClassifiedError struct {
	Kind Kind
	// Status is the HTTP or embedded status; zero when none applies.
	Status int
	// Description is a human readable message. For status failures it is
	// the serialized {"status":N,"message":"..."} document.
	Description string
	Err         error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	msg := fmt.Sprintf("backend %s", e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Description != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Description)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a ClassifiedError anywhere in err's chain, or "".
func KindOf(err error) Kind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// statusDescription is the synthesized description of a status failure.
type statusDescription struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func describeStatus(status int, message string) string {
	raw, err := json.Marshal(statusDescription{Status: status, Message: message})
	if err != nil {
		return message
	}
	return string(raw)
}

func statusError(status int, message string) *ClassifiedError {
	kind := KindNotOK
	if status == 404 {
		kind = KindNotFound
	}
	return &ClassifiedError{
		Kind:        kind,
		Status:      status,
		Description: describeStatus(status, message),
	}
}
