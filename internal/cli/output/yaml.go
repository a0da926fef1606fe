// Package output provides output formatting for robustmq-cli.
package output

import "io"

// YAMLFormatter is the formatter for the yaml output format.
type YAMLFormatter struct{}

// Format writes nothing to w and returns nil; data is not encoded as
// YAML.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	// TODO: Use gopkg.in/yaml.v3 for YAML encoding
	return nil
}
