package cerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxRequestBody = 1 << 20

// DecodeJSON reads the request body into v. Malformed or unknown fields are
// reported as InvalidArgument.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return NewError(InvalidArgument, "request body is required", err)
		}
		return NewError(InvalidArgument, fmt.Sprintf("invalid request body: %s", err), err)
	}
	return nil
}
