package types

// SuccessEnvelope wraps every successful API payload under a "data" key so
// clients can unmarshal responses uniformly.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire shape of a failed request. Code is a stable
// machine-readable identifier; Details carries structured context such as
// field-level validation failures or the percentage sum that missed 100.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
