package gemini

import "fmt"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
	// Message is the remote error message, when the body carried one.
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("generateContent returned %d %s: %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("generateContent returned %d %s", e.Code, e.Status)
}

// TransportError is returned when the request could not be completed.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "generateContent transport failure: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a 2xx body is not a valid response.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "generateContent response decode failure: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
