package output

import (
	"encoding/json"
	"io"
	"os"
)

// SchemaVersion is carried by every envelope so consumers can detect changes.
const SchemaVersion = "v1"

// Response represents a standard JSON response
type Response struct {
	SchemaVersion string `json:"schema_version"`
	Success       bool   `json:"success"`
	Data          any    `json:"data,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Config controls where and how JSON is written.
type Config struct {
	Writer io.Writer
	Pretty bool
}

// Success wraps a successful response with data
func Success(data any) Response {
	return Response{
		SchemaVersion: SchemaVersion,
		Success:       true,
		Data:          data,
	}
}

// Error wraps an error in a response
func Error(err error) Response {
	return Response{
		SchemaVersion: SchemaVersion,
		Success:       false,
		Error:         err.Error(),
	}
}

// PrettyFromEnv reports whether OCN_PRETTY_JSON asks for indented output.
func PrettyFromEnv() bool {
	v := os.Getenv("OCN_PRETTY_JSON")
	return v == "1" || v == "true"
}

// To returns the default config for w: compact unless OCN_PRETTY_JSON is set.
func To(w io.Writer) Config {
	return Config{Writer: w, Pretty: PrettyFromEnv()}
}

// PrintWith encodes v as a single JSON document followed by a newline.
func PrintWith(cfg Config, v any) error {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if cfg.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// Print prints a value as JSON to stdout
func Print(v any) error {
	return PrintWith(To(os.Stdout), v)
}

// PrintSuccess prints a success response
func PrintSuccess(data any) error {
	return Print(Success(data))
}

// PrintError prints an error response
func PrintError(err error) error {
	return Print(Error(err))
}
