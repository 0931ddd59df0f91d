package process

import (
	"os"
	"sort"
	"strings"
)

// envPlan is the environment a child will receive: the inherited snapshot
// with overrides applied on top, or only the overrides when clear is set.
// The plan is materialized once at spawn time; the parent's environment
// is never mutated.
type envPlan struct {
	overrides map[string]string
	clear     bool
}

func (p *envPlan) set(key, value string) {
	if p.overrides == nil {
		p.overrides = make(map[string]string)
	}
	p.overrides[key] = value
}

func (p *envPlan) copy() envPlan {
	out := envPlan{clear: p.clear}
	if p.overrides != nil {
		out.overrides = make(map[string]string, len(p.overrides))
		for k, v := range p.overrides {
			out.overrides[k] = v
		}
	}
	return out
}

// materialize computes the child environment in "key=value" form.
// A nil return means "inherit the parent environment unchanged".
func (p *envPlan) materialize() []string {
	if !p.clear && len(p.overrides) == 0 {
		return nil
	}

	var env []string
	seen := make(map[string]bool, len(p.overrides))

	if !p.clear {
		for _, kv := range os.Environ() {
			key := kv
			if idx := strings.IndexByte(kv, '='); idx >= 0 {
				key = kv[:idx]
			}
			if override, ok := p.overrides[key]; ok {
				env = append(env, key+"="+override)
				seen[key] = true
				continue
			}
			env = append(env, kv)
		}
	}

	// Overrides for keys not present in the inherited snapshot, in a
	// deterministic order.
	rest := make([]string, 0, len(p.overrides))
	for k := range p.overrides {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		env = append(env, k+"="+p.overrides[k])
	}

	if env == nil {
		env = []string{}
	}
	return env
}
