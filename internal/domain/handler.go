package domain

import (
	"context"
)

// ToolHandler processes validated arguments for one tool and returns a
// canonical value or a classified error.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// ResourceProducer returns the current value of a resource.
type ResourceProducer func(ctx context.Context) (interface{}, error)
