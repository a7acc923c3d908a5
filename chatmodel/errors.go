package chatmodel

// ErrorKind classifies a tool-level failure carried in a ToolResult.
// These never abort a turn; the model sees them and can react.
type ErrorKind string

const (
	// KindInvalidArguments means the arguments failed schema validation.
	KindInvalidArguments ErrorKind = "invalid_arguments"
	// KindExecutionFailed means the tool implementation returned an error
	// or faulted during execution.
	KindExecutionFailed ErrorKind = "execution_failed"
	// KindTimeout means the tool did not complete within the execution bound.
	KindTimeout ErrorKind = "timeout"
)

// ErrorDescriptor is a tool-level failure folded into the conversation.
type ErrorDescriptor struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e ErrorDescriptor) String() string {
	return string(e.Kind) + ": " + e.Message
}
