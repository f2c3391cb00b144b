package middlewares

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Sanitize collapses repeated query parameters to their last value and strips
// operator-looking keys (leading "$" or containing ".") from JSON bodies.
func Sanitize() gin.HandlerFunc {
	return func(c *gin.Context) {
		collapseQuery(c.Request)

		if !isJSON(c.Request) {
			c.Next()
			return
		}

		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				abortError(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
				return
			}
			abortError(c, http.StatusBadRequest, "invalid_request", "Could not read request body")
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(sanitizeJSON(raw)))
		c.Next()
	}
}

func isJSON(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "application/json")
}

func collapseQuery(r *http.Request) {
	q := r.URL.Query()
	changed := false

	for k, vs := range q {
		if len(vs) > 1 {
			q[k] = vs[len(vs)-1:]
			changed = true
		}
	}

	if changed {
		r.URL.RawQuery = q.Encode()
	}
}

// sanitizeJSON returns raw unchanged when it is not valid JSON; binding will
// report that error.
func sanitizeJSON(raw []byte) []byte {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}

	cleaned, changed := stripKeys(v)
	if !changed {
		return raw
	}

	out, err := json.Marshal(cleaned)
	if err != nil {
		return raw
	}
	return out
}

func stripKeys(v any) (any, bool) {
	changed := false

	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
				delete(t, k)
				changed = true
				continue
			}
			cleaned, ch := stripKeys(child)
			if ch {
				t[k] = cleaned
				changed = true
			}
		}
	case []any:
		for i, child := range t {
			cleaned, ch := stripKeys(child)
			if ch {
				t[i] = cleaned
				changed = true
			}
		}
	}

	return v, changed
}
