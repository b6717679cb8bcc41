package domain

import (
	"encoding/json"
	"fmt"
)

// DefaultResponseMapper is the default implementation of ResponseMapper.
type DefaultResponseMapper struct{}

// NewResponseMapper creates a new instance of DefaultResponseMapper.
func NewResponseMapper() ResponseMapper {
	return &DefaultResponseMapper{}
}

// ErrorPayload is the structured body of an error envelope.
type ErrorPayload struct {
	Kind    ErrorKind              `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MapToToolResponse renders result as indented JSON text and attaches it as
// structured content. Search results get a second block describing truncation.
func (m *DefaultResponseMapper) MapToToolResponse(result interface{}) (*ToolResponse, error) {
	if result == nil {
		return &ToolResponse{
			Content: []ContentBlock{{Type: "text", Text: "{}"}},
		}, nil
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	resp := &ToolResponse{
		Content:           []ContentBlock{{Type: "text", Text: string(jsonBytes)}},
		StructuredContent: structured(result),
	}

	if info := extractPaginationInfo(result); info != "" {
		resp.Content = append(resp.Content, ContentBlock{Type: "text", Text: info})
	}

	return resp, nil
}

// structured wraps non-object results so structuredContent is always a JSON
// object, as MCP requires.
func structured(result interface{}) interface{} {
	switch v := result.(type) {
	case []string:
		return map[string]interface{}{"items": v}
	case []Issue:
		return map[string]interface{}{"items": v}
	default:
		return result
	}
}

// extractPaginationInfo describes how much of a search result was returned.
func extractPaginationInfo(result interface{}) string {
	var sr *SearchResult
	switch v := result.(type) {
	case *SearchResult:
		sr = v
	case SearchResult:
		sr = &v
	default:
		return ""
	}

	if sr.Truncated {
		return fmt.Sprintf("Showing %d of %d matching issues (truncated at %d)", len(sr.Issues), sr.Total, sr.MaxResults)
	}
	return fmt.Sprintf("Showing all %d matching issues", len(sr.Issues))
}

// MapError converts err into an error envelope that keeps its kind and a
// human-readable detail string.
func (m *DefaultResponseMapper) MapError(err error) *ToolResponse {
	kinded, ok := AsKinded(err)
	if !ok {
		kinded = &BackendUnavailableError{Reason: ReasonUnclassified, Detail: err.Error(), Err: err}
	}

	payload := ErrorPayload{
		Kind:    kinded.Kind(),
		Message: kinded.Error(),
		Details: kinded.Details(),
	}

	return &ToolResponse{
		Content: []ContentBlock{{
			Type: "text",
			Text: fmt.Sprintf("%s: %s", payload.Kind, payload.Message),
		}},
		StructuredContent: map[string]interface{}{"error": payload},
		IsError:           true,
	}
}
