package core

import "strings"

// FallbackChain is the ordered list of provider names tried for one completion.
type FallbackChain []string

// ParseChain splits a comma-separated provider list such as "groq,openrouter".
// Blank entries are dropped; names are lower-cased.
func ParseChain(s string) FallbackChain {
	parts := strings.Split(s, ",")
	chain := make(FallbackChain, 0, len(parts))
	for _, p := range parts {
		name := strings.ToLower(strings.TrimSpace(p))
		if name != "" {
			chain = append(chain, name)
		}
	}
	return chain
}

// Normalized returns the chain with names trimmed and lower-cased and with
// repeated providers removed, keeping the first occurrence. A provider is
// attempted at most once per call.
func (c FallbackChain) Normalized() FallbackChain {
	seen := make(map[string]struct{}, len(c))
	out := make(FallbackChain, 0, len(c))
	for _, name := range c {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// String joins the chain with commas.
func (c FallbackChain) String() string {
	return strings.Join(c, ",")
}
