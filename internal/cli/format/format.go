// Package format renders CLI output, highlighting it when the destination
// is a color terminal.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2/quick"
)

const (
	// maxHighlightSize bounds the documents worth highlighting
	maxHighlightSize = 1024 * 1024

	highlightFormatter = "terminal256"
	highlightStyle     = "monokai"
)

// JSON writes v to w as JSON followed by a newline. Indented output is
// syntax highlighted when color is set; compact output never is, so
// line-oriented consumers can rely on one document per line.
func JSON(w io.Writer, v any, indent, color bool) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	if !indent || !color || buf.Len() > maxHighlightSize {
		_, err := w.Write(buf.Bytes())
		return err
	}

	var highlighted bytes.Buffer
	if err := quick.Highlight(&highlighted, buf.String(), "json", highlightFormatter, highlightStyle); err != nil {
		// plain output is always acceptable
		_, err := w.Write(buf.Bytes())
		return err
	}
	_, err := w.Write(highlighted.Bytes())
	return err
}
