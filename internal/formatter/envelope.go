package formatter

import (
	"encoding/json"
	"io"
)

// The structured output shape for machine consumers: every response is a
// mapping carrying success; failures carry error; successes carry
// operation-specific fields.

// WriteResult writes a success envelope with the given operation fields.
func WriteResult(w io.Writer, fields map[string]any) error {
	out := map[string]any{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	return encode(w, out)
}

// WriteError writes a failure envelope.
func WriteError(w io.Writer, err error) error {
	return encode(w, map[string]any{"success": false, "error": err.Error()})
}

func encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false) // don't escape < > & in review text
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
