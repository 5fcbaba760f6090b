package ramp

import (
	"fmt"
	"sort"
	"strings"
)

const DefaultEnv = "demo"

var baseURLs = map[string]string{
	"demo": "https://demo-api.ramp.com/developer/v1",
	"qa":   "https://qa-api.ramp.com/developer/v1",
	"prd":  "https://api.ramp.com/developer/v1",
}

// BaseURL returns the API root of a Ramp environment.
func BaseURL(env string) (string, error) {
	env = strings.ToLower(strings.TrimSpace(env))
	if env == "" {
		env = DefaultEnv
	}
	u, ok := baseURLs[env]
	if !ok {
		return "", fmt.Errorf("%w %q (want one of %s)", ErrUnknownEnv, env, strings.Join(Envs(), ", "))
	}
	return u, nil
}

// Envs lists the known environment names.
func Envs() []string {
	out := make([]string, 0, len(baseURLs))
	for k := range baseURLs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
