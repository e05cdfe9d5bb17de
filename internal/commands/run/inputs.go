package run

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	pkgerrors "github.com/tombee/ruline/pkg/errors"
)

// input is one document to run the workflow against.
type input struct {
	Name string
	Data any
}

// loadInputs reads every --input. JSON is valid YAML, so both go through
// the YAML decoder; a file with several YAML documents yields one input
// per document.
func loadInputs(stdin io.Reader, paths []string) ([]input, error) {
	if len(paths) == 0 {
		return []input{{Name: "(none)"}}, nil
	}

	var inputs []input
	stdinUsed := false
	for _, path := range paths {
		var data []byte
		var err error
		name := path
		if path == "-" {
			if stdinUsed {
				return nil, fmt.Errorf("stdin can only be used as an input once")
			}
			stdinUsed = true
			name = "stdin"
			data, err = io.ReadAll(stdin)
			if err != nil {
				return nil, fmt.Errorf("failed to read from stdin: %w", err)
			}
		} else {
			data, err = os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read input file: %w", err)
			}
		}

		docs, err := decodeDocuments(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		for i, doc := range docs {
			docName := name
			if len(docs) > 1 {
				docName = fmt.Sprintf("%s[%d]", name, i)
			}
			inputs = append(inputs, input{Name: docName, Data: doc})
		}
	}
	return inputs, nil
}

func decodeDocuments(data []byte) ([]any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var docs []any
	for {
		var doc any
		err := dec.Decode(&doc)
		if pkgerrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		// an empty file is a single null document
		docs = append(docs, nil)
	}
	return docs, nil
}

// parseVars parses key=value overrides. Values are decoded as YAML scalars
// or flow collections; an empty value is the empty string.
func parseVars(args []string) (map[string]any, error) {
	vars := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q (expected key=value)", arg)
		}
		if raw == "" {
			vars[key] = ""
			continue
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		vars[key] = v
	}
	return vars, nil
}
