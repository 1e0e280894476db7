package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/CZERTAINLY/procrun/internal/run"

	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// result is the document printed by --output json|yaml.
type result struct {
	Code   int     `json:"code" yaml:"code"`
	Stdout *string `json:"stdout,omitempty" yaml:"stdout,omitempty"`
	Stderr *string `json:"stderr,omitempty" yaml:"stderr,omitempty"`
}

func newResult(out *run.Output) result {
	res := result{Code: out.Code()}
	if s, ok := out.Stdout(); ok {
		res.Stdout = &s
	}
	if s, ok := out.Stderr(); ok {
		res.Stderr = &s
	}
	return res
}

func checkOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// printOutput writes the result document. Text output prints nothing,
// the lines were already streamed.
func printOutput(w io.Writer, format string, out *run.Output) error {
	switch format {
	case outputText:
		return nil
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newResult(out))
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newResult(out)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return checkOutput(format)
	}
}
