package domain

// Request represents a JSON-RPC 2.0 request message.
type Request struct {
	JSONRPC string      `json:"jsonrpc"` // Must be "2.0"
	ID      interface{} `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`

	// SessionID identifies the transport session the request arrived on.
	SessionID string `json:"-"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC 2.0 response message.
type Response struct {
	JSONRPC string      `json:"jsonrpc"` // Must be "2.0"
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`

	// SessionID routes the response back to the originating session.
	SessionID string `json:"-"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface for Error.
func (e *Error) Error() string {
	return e.Message
}

// JSON-RPC 2.0 error codes
const (
	// Standard JSON-RPC 2.0 error codes
	ParseError     = -32700 // Invalid JSON received
	InvalidRequest = -32600 // Invalid JSON-RPC request structure
	MethodNotFound = -32601 // Unknown MCP method
	InvalidParams  = -32602 // Invalid method parameters
	InternalError  = -32603 // Server internal error

	// Application-specific error codes
	ConfigurationErrorCode = -32001 // Server started without a usable configuration
	ResourceNotFound       = -32002 // Unknown resource URI (MCP convention)
	PermissionDenied       = -32003 // Identity lacks rights on the backend
	BackendUnavailable     = -32004 // Backend transport, timeout or server fault
	EntityNotFound         = -32005 // Backend reports no such entity
)

// RPCErrorFor maps a classified error onto a JSON-RPC error object. It is
// used where MCP requires protocol errors (resources/read); tool calls
// report failures inside the envelope instead.
func RPCErrorFor(err error) *Error {
	kinded, ok := AsKinded(err)
	if !ok {
		return &Error{Code: InternalError, Message: "Internal error"}
	}

	code := InternalError
	switch kinded.Kind() {
	case KindConfiguration:
		code = ConfigurationErrorCode
	case KindValidation:
		code = InvalidParams
	case KindNotFound:
		code = EntityNotFound
	case KindPermission:
		code = PermissionDenied
	case KindBackendUnavailable:
		code = BackendUnavailable
	case KindDispatch:
		code = MethodNotFound
		if d, ok := kinded.(*DispatchError); ok && d.Reason == DispatchUnknownResource {
			code = ResourceNotFound
		}
	}

	data := kinded.Details()
	data["kind"] = string(kinded.Kind())
	return &Error{
		Code:    code,
		Message: kinded.Error(),
		Data:    data,
	}
}
