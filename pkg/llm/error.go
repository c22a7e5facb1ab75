// Package llm provides the internal representations of conversation turns and of the
// generateContent requests and responses exchanged with the remote model.
package llm

// ErrorResponse represents an error returned by the pmassist HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RemoteError is the error envelope the remote model returns with non-2xx statuses.
type RemoteError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
