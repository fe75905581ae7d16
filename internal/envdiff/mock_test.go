package envdiff

import (
	"context"
	"sort"
	"strings"
)

const testDivider = "__DIV__"

// fakeRunner plays the shell: it dumps inv.Env, lets script mutate a copy
// and print output, then dumps the copy.
type fakeRunner struct {
	script func(env map[string]string) []string
	raw    string
	err    error

	calls []Invocation
}

func (f *fakeRunner) Run(ctx context.Context, inv Invocation) ([]byte, error) {
	f.calls = append(f.calls, inv)
	if f.err != nil {
		return []byte("boom\n"), f.err
	}
	if f.raw != "" {
		return []byte(f.raw), nil
	}

	env := make(map[string]string)
	for _, kv := range inv.Env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	var b strings.Builder
	dump(&b, env)
	b.WriteString(testDivider + "\n")
	if f.script != nil {
		for _, line := range f.script(env) {
			b.WriteString(line + "\n")
		}
	}
	b.WriteString(testDivider + "\n")
	dump(&b, env)
	return []byte(b.String()), nil
}

func dump(b *strings.Builder, env map[string]string) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k + "=" + env[k] + "\n")
	}
}

// recordingStore counts writes made through it.
type recordingStore struct {
	*MapStore
	sets   int
	unsets int
}

func (s *recordingStore) Set(name, value string) error {
	s.sets++
	return s.MapStore.Set(name, value)
}

func (s *recordingStore) Unset(name string) error {
	s.unsets++
	return s.MapStore.Unset(name)
}
