// internal/app/system/jsonio/jsonio.go
package jsonio

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 1 << 20

var errContentType = apperr.Validation("content type must be application/json")

// IsJSON reports whether r declares an application/json body.
func IsJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Decode reads a JSON body into dst. The request must declare
// application/json, so browsers preflight cross-origin writes. Unknown
// fields are rejected and an empty body is a validation error.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	const op = "jsonio.Decode"
	if !IsJSON(r) {
		return errContentType
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Validation("request body is required")
		case errors.As(err, &mbe):
			return apperr.Validation("request body too large")
		default:
			return apperr.E(apperr.KindValidation, op, "invalid JSON: "+err.Error(), err)
		}
	}
	return nil
}
