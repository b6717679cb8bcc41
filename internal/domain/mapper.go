package domain

// ResponseMapper renders canonical results and classified errors as MCP
// tool envelopes.
type ResponseMapper interface {
	// MapToToolResponse wraps a canonical value in a success envelope.
	// Returns an error if the value cannot be serialized.
	MapToToolResponse(result interface{}) (*ToolResponse, error)

	// MapError wraps a failure in an error envelope. Errors outside the
	// taxonomy are rendered as backend-unavailable so no raw failure shape
	// reaches the caller.
	MapError(err error) *ToolResponse
}
