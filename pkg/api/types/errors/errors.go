package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorMessage is the body of every non-2xx response.
type ErrorMessage struct {
	// Reason why the request failed.
	Reason string `json:"message"`

	// Advice for the caller to get over this error, if any.
	Advice string `json:"advice,omitempty"`

	// See is a pointer to a related resource, if any.
	See string `json:"see,omitempty"`

	// Cause of this error. Not exposed on the wire.
	Cause error `json:"-"`
}

func (em ErrorMessage) Error() string {
	if em.Cause == nil {
		return em.Reason
	}
	return fmt.Sprintf("%s (caused by: %s)", em.Reason, em.Cause)
}

func (em ErrorMessage) Unwrap() error {
	return em.Cause
}

func (em ErrorMessage) String() string {
	b, err := json.Marshal(em)
	if err != nil {
		return em.Reason
	}
	return string(b)
}
