package rest

import (
	"encoding/json"
	"fmt"
)

const (
	// MsgUnreachable is the user-facing message for transport failures
	// (connection refused, DNS, client-side timeout).
	MsgUnreachable = "could not reach service"

	// MsgGenericFailure is used when a server error body carries no
	// recognizable message field.
	MsgGenericFailure = "request failed, please try again"
)

// APIError is the uniform classification of any failed request:
// non-2xx responses and transport failures alike.
type APIError struct {
	// Status is the HTTP status code, or 0 when no response was received.
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("rest: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("rest: %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorBody covers the message fields the services are known to use.
type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Err     string `json:"error"`
}

// messageFromBody extracts a human-readable message from an error response
// body, checking detail, message and error in that order.
func messageFromBody(body []byte) string {
	var b errorBody
	if err := json.Unmarshal(body, &b); err != nil {
		return ""
	}
	switch {
	case b.Detail != "":
		return b.Detail
	case b.Message != "":
		return b.Message
	case b.Err != "":
		return b.Err
	}
	return ""
}
