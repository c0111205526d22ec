package errors

const (
	HttpInternalError       = "internal_error"
	HttpInvalidJsonError    = "invalid_json"
	HttpInvalidQueryError   = "invalid_query"
	HttpInvalidRequestError = "invalid_request"
	HttpDuplicateSound      = "duplicate_sound"
	HttpSoundNotFound       = "sound_not_found"
	HttpPayloadTooLarge     = "payload_too_large"
	HttpPersistenceFailure  = "persistence_failure"
)

// ErrorResponse is the error response body for API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
