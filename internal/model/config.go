package model

import (
	"io"

	"github.com/CZERTAINLY/procrun/internal/log"
	"github.com/CZERTAINLY/procrun/internal/run"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	ExecutorTasks   = "tasks"
	ExecutorThreads = "threads"
)

// schemaFile names the schema in CUE error positions.
const schemaFile = "config.cue"

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource, cue.Filename(schemaFile))
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

// Config is a procrun profile: how commands are executed and logged.
type Config struct {
	Version int           `json:"version" yaml:"version"` // fixed 0 for now
	Runner  *RunnerConfig `json:"runner,omitempty" yaml:"runner,omitempty"`
	Log     *Log          `json:"log,omitempty" yaml:"log,omitempty"`
}

// RunnerConfig mirrors the run.Runner setters.
type RunnerConfig struct {
	Dir         *string           `json:"dir,omitempty" yaml:"dir,omitempty"`
	EnvClear    *bool             `json:"env_clear,omitempty" yaml:"env_clear,omitempty"`
	EnvRemove   []string          `json:"env_remove,omitempty" yaml:"env_remove,omitempty"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	EnforceCode *int              `json:"enforce_code,omitempty" yaml:"enforce_code,omitempty"` // nil => no enforcement
	Capture     *bool             `json:"capture,omitempty" yaml:"capture,omitempty"`
	Executor    *string           `json:"executor,omitempty" yaml:"executor,omitempty"` // "tasks" | "threads"
	LogLines    *bool             `json:"log_lines,omitempty" yaml:"log_lines,omitempty"`
}

type Log struct {
	Verbose *bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Output  *string `json:"output,omitempty" yaml:"output,omitempty"` // "stderr"|"stdout"|"discard"|path
	Format  *string `json:"format,omitempty" yaml:"format,omitempty"` // "json" | "text"
}

func DefaultConfig() Config {
	return Config{
		Version: 0,
		Runner: &RunnerConfig{
			EnforceCode: ptr(0),
			Capture:     ptr(true),
			Executor:    ptr(ExecutorTasks),
			LogLines:    ptr(false),
		},
		Log: &Log{
			Verbose: ptr(false),
			Output:  ptr(log.OutputStderr),
			Format:  ptr(log.FormatJSON),
		},
	}
}

// LoadConfig validates YAML from r against the CUE schema and decodes it.
func LoadConfig(r io.Reader) (*Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return nil, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return nil, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Runner materializes the settings into a new run.Runner. A nil
// RunnerConfig gives run.New().
func (c *RunnerConfig) Runner() *run.Runner {
	r := run.New()
	if c == nil {
		return r
	}

	r.Dir(get(c.Dir))
	if get(c.EnvClear) {
		r.ClearEnv()
	}
	r.RemoveEnv(c.EnvRemove...)
	r.Envs(c.Env)
	if c.EnforceCode != nil {
		r.EnforceCode(*c.EnforceCode)
	}
	r.Capture(get(c.Capture))
	if get(c.Executor) == ExecutorThreads {
		r.Executor(run.Threads{})
	}
	if get(c.LogLines) {
		r.OnStdout(run.LogLines(run.Stdout))
		r.OnStderr(run.LogLines(run.Stderr))
	}
	return r
}

// Options turns the log settings into log.Options, without the writer.
func (l *Log) Options() log.Options {
	if l == nil {
		return log.Options{}
	}
	return log.Options{
		Verbose: get(l.Verbose),
		Format:  get(l.Format),
	}
}

func (l *Log) OutputOrDefault() string {
	if l == nil || l.Output == nil {
		return log.OutputStderr
	}
	return *l.Output
}

func get[T any](pt *T) T {
	var zero T
	if pt == nil {
		return zero
	}
	return *pt
}

func ptr[T any](v T) *T {
	return &v
}
