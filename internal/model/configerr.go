package model

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// Violation is a single schema error of a config file, reduced to what a
// user needs to fix it.
type Violation struct {
	Field   string // dotted path, like runner.executor
	Kind    string
	Message string
	Pos     Position
	Raw     string
}

// Position is a location in the config file.
type Position struct {
	File   string
	Line   int
	Column int
}

// Violation kinds.
const (
	KindUnknownField = "unknown_field"
	KindMissing      = "missing_required"
	KindEnum         = "invalid_enum"
	KindConflict     = "conflicting_values"
	KindType         = "type_mismatch"
	KindOther        = "validation_error"
)

func (v Violation) Attr(name string) slog.Attr {
	return slog.GroupAttrs(name,
		slog.String("kind", v.Kind),
		slog.String("field", v.Field),
		slog.String("file", v.Pos.File),
		slog.Int("line", v.Pos.Line),
		slog.Int("column", v.Pos.Column),
	)
}

func (v Violation) String() string {
	if v.Pos.File == "" {
		return v.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s", v.Pos.File, v.Pos.Line, v.Pos.Column, v.Message)
}

// rules are tried in order, the first match wins. %s is the field path.
var rules = []struct {
	kind   string
	re     *regexp.Regexp
	format string
}{
	{KindUnknownField, regexp.MustCompile(`(?i)not allowed|unknown field`), "unknown field %s"},
	{KindMissing, regexp.MustCompile(`(?i)incomplete value`), "field %s is required"},
	{KindEnum, regexp.MustCompile(`(?i)must be one of|expected one of|empty disjunction`), "invalid value of %s"},
	{KindConflict, regexp.MustCompile(`(?i)conflicting values|cannot unify|incompatible`), "invalid value of %s"},
	{KindType, regexp.MustCompile(`(?i)expected .* got .*`), "wrong type of %s"},
}

// enums lists the accepted values of the enumerated fields.
var enums = map[string][]string{
	"runner.executor": {ExecutorTasks, ExecutorThreads},
	"log.format":      {"json", "text"},
}

// Violations explains an error returned by LoadConfig, reporting each
// source position once.
func Violations(err error) []Violation {
	if err == nil {
		return nil
	}

	var out []Violation
	for _, e := range cueerrors.Errors(err) {
		pos := position(e)
		if slices.ContainsFunc(out, func(v Violation) bool { return v.Pos == pos }) {
			continue
		}

		format, args := e.Msg()
		v := Violation{
			Field: fieldPath(e.Path()),
			Pos:   pos,
			Raw:   fmt.Sprintf(format, args...),
		}
		v.Kind, v.Message = KindOther, v.Raw
		for _, r := range rules {
			if r.re.MatchString(v.Raw) {
				v.Kind, v.Message = r.kind, fmt.Sprintf(r.format, v.Field)
				break
			}
		}
		if values, ok := enums[v.Field]; ok && v.Kind != KindUnknownField {
			v.Message += ", expected one of " + strings.Join(values, ", ")
		}
		out = append(out, v)
	}
	return out
}

// position prefers the location inside the user's YAML over the schema.
func position(err cueerrors.Error) Position {
	var pos Position
	for _, p := range cueerrors.Positions(err) {
		if p.Filename() == "" {
			continue
		}
		pos = Position{File: p.Filename(), Line: p.Line(), Column: p.Column()}
		if pos.File != schemaFile {
			break
		}
	}
	return pos
}

// fieldPath drops the schema definition, #Config, from the path.
func fieldPath(p []string) string {
	if len(p) > 0 && strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}
