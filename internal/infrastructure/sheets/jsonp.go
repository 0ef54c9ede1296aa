package sheets

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrCallbackMismatch is returned when a JSONP response invokes a callback
// other than the one registered for the request.
var ErrCallbackMismatch = errors.New("jsonp: response invokes an unexpected callback")

// WrapJSONP renders payload as a call to callback, the way the Apps Script
// web app answers requests that carry a callback parameter.
func WrapJSONP(callback string, payload []byte) []byte {
	out := make([]byte, 0, len(callback)+len(payload)+3)
	out = append(out, callback...)
	out = append(out, '(')
	out = append(out, payload...)
	out = append(out, ')', ';')
	return out
}

// UnwrapJSONP extracts the JSON argument of `callback(...)`. Surrounding
// whitespace and a trailing semicolon are allowed.
func UnwrapJSONP(body []byte, callback string) ([]byte, error) {
	b := bytes.TrimSpace(body)
	b = bytes.TrimSuffix(b, []byte(";"))
	b = bytes.TrimSpace(b)

	open := bytes.IndexByte(b, '(')
	if open < 0 || len(b) == 0 || b[len(b)-1] != ')' {
		return nil, fmt.Errorf("jsonp: malformed response %q", truncate(body, 120))
	}
	if name := string(bytes.TrimSpace(b[:open])); name != callback {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrCallbackMismatch, name, callback)
	}
	return bytes.TrimSpace(b[open+1 : len(b)-1]), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
