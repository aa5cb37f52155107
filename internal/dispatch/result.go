package dispatch

// Kind classifies a dispatch failure. Registration and deployment errors are
// surfaced immediately to their callers as Go errors and never appear in a
// Result envelope.
type Kind string

const (
	KindModelNotFound     Kind = "model_not_found"
	KindFunctionNotFound  Kind = "function_not_found"
	KindParameterMismatch Kind = "parameter_mismatch"
	KindExecutionError    Kind = "execution_error"
	KindTimeout           Kind = "timeout"
)

// Failure is the structured error half of a dispatch result. Context carries
// whatever the caller needs to self-correct, such as the available model
// names or the expected signature.
type Failure struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// Request is a single transport-agnostic call: a model name, a function name,
// and parameters applied by name.
type Request struct {
	Model      string         `json:"model"`
	Function   string         `json:"function"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Result is the uniform response envelope: either a value or a failure,
// never both.
type Result struct {
	Model      string         `json:"model"`
	Function   string         `json:"function"`
	Value      any            `json:"result,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Error      *Failure       `json:"error,omitempty"`
}

// OK reports whether the dispatch succeeded.
func (r Result) OK() bool {
	return r.Error == nil
}

// SignatureResponse is the answer to a function_signature query.
type SignatureResponse struct {
	Name       string   `json:"name"`
	Signature  string   `json:"signature"`
	Parameters []string `json:"parameters"`
	Doc        string   `json:"doc"`
}
