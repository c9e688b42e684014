package supabase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from GoTrue or PostgREST.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase %d: %s", e.Status, e.Message)
}

// errorBody covers both GoTrue (error_description/msg/error_code) and
// PostgREST (message/code/details/hint) error payloads.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Code             any    `json:"code"`
	Details          string `json:"details"`
}

func parseAPIError(status int, data []byte) error {
	e := &APIError{Status: status}
	var b errorBody
	if json.Unmarshal(data, &b) == nil {
		for _, m := range []string{b.ErrorDescription, b.Msg, b.Message, b.Error} {
			if strings.TrimSpace(m) != "" {
				e.Message = m
				break
			}
		}
		switch {
		case b.ErrorCode != "":
			e.Code = b.ErrorCode
		case b.Code != nil:
			e.Code = fmt.Sprint(b.Code)
		}
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(data))
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// Detail is the service's own wording, without status or code.
func (e *APIError) Detail() string { return e.Message }
