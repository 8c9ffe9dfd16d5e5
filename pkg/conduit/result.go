package conduit

// Result is the structured envelope surfaced at the tool boundary. A call
// either succeeds with Data or fails with a message, a machine-readable
// code, and a human-actionable suggestion; raw transport errors never cross
// this boundary.
type Result struct {
	Success    bool      `json:"success"               yaml:"success"`
	Data       any       `json:"data,omitempty"        yaml:"data,omitempty"`
	Error      string    `json:"error,omitempty"       yaml:"error,omitempty"`
	ErrorCode  ErrorCode `json:"error_code,omitempty"  yaml:"error_code,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"  yaml:"suggestion,omitempty"`
}

// OK wraps a successful payload.
func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Err wraps a failure with its code and suggestion.
func Err(err error) Result {
	if err == nil {
		return OK(nil)
	}

	return Result{
		Success:    false,
		Error:      err.Error(),
		ErrorCode:  CodeOf(err),
		Suggestion: SuggestionOf(err),
	}
}
