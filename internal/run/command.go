package run

import (
	"maps"
	"os"
	"slices"
	"strings"
)

// Command is the read-only snapshot an Executor works with. Runner builds
// one per call, so later changes to the Runner never reach a running
// execution.
type Command struct {
	Path        string
	Args        []string
	Dir         string
	Env         []string // nil inherits the parent environment
	Stdout      []Observer
	Stderr      []Observer
	EnforceCode *int
	Capture     bool
}

// environ resolves the child environment: start from the parent unless
// cleared, drop removed names, then apply the set entries.
func environ(clear bool, remove []string, set map[string]string) []string {
	if !clear && len(remove) == 0 && len(set) == 0 {
		return nil
	}

	env := []string{}
	if !clear {
		for _, kv := range os.Environ() {
			if !slices.Contains(remove, envName(kv)) {
				env = append(env, kv)
			}
		}
	}

	for _, name := range slices.Sorted(maps.Keys(set)) {
		env = slices.DeleteFunc(env, func(kv string) bool {
			return envName(kv) == name
		})
		env = append(env, name+"="+set[name])
	}
	return env
}

func envName(kv string) string {
	if kv == "" {
		return ""
	}
	// Windows keeps per-drive entries like "=C:=C:\", so skip a leading '='.
	if i := strings.IndexByte(kv[1:], '='); i >= 0 {
		return kv[:i+1]
	}
	return kv
}
