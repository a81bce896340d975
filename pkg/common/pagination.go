package common

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "recipegraph/pkg/errors"
)

const cursorPrefix = "seq:"

// EncodeCursor turns a creation sequence into an opaque page cursor.
func EncodeCursor(seq int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(cursorPrefix + strconv.FormatInt(seq, 10)))
}

// DecodeCursor reverses EncodeCursor. An empty cursor decodes to zero.
func DecodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil || !strings.HasPrefix(string(raw), cursorPrefix) {
		return 0, pkgerrors.NewValidationError("invalid cursor")
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(string(raw), cursorPrefix), 10, 64)
	if err != nil || seq <= 0 {
		return 0, pkgerrors.NewValidationError("invalid cursor")
	}
	return seq, nil
}

// QueryInt reads an integer query parameter. Missing parameters yield def;
// malformed ones are a validation error.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.NewValidationError(name + " must be an integer")
	}
	return v, nil
}
