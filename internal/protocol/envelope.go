package protocol

// Envelope is the wire shape of every tool response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the error half of an Envelope.
type ErrorBody struct {
	Code         Code   `json:"code"`
	Message      string `json:"message"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
}

// Response is the outcome of one dispatched call.
type Response struct {
	Tool string
	Data string
	Err  *Error
	// Trace lists the states the call passed through, ending in Responded.
	Trace []State
}

// OK reports whether the call succeeded.
func (r *Response) OK() bool { return r.Err == nil }

// Envelope renders r in wire form.
func (r *Response) Envelope() Envelope {
	if r.Err == nil {
		return Envelope{Success: true, Data: r.Data}
	}
	body := &ErrorBody{Code: r.Err.Code, Message: r.Err.Message}
	if r.Err.RetryAfter > 0 {
		body.RetryAfterMs = r.Err.RetryAfter.Milliseconds()
		if body.RetryAfterMs == 0 {
			body.RetryAfterMs = 1
		}
	}
	return Envelope{Success: false, Error: body}
}
