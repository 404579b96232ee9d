package coaching

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yungbote/prepcoach-backend/internal/platform/apperr"
)

var placeholderRE = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Render fills {name} placeholders from vars. Every missing name is reported in a single
// TemplateResolution error; nothing is partially rendered.
func Render(ruleID, tmpl string, vars map[string]string) (string, error) {
	var missing []string
	seen := map[string]bool{}
	out := placeholderRE.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return match
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", apperr.TemplateResolution(ruleID, "unresolved placeholders: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// Placeholders lists the distinct names a template references, in order of appearance.
func Placeholders(tmpl string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range placeholderRE.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// templateVars merges snapshot context under the condition's bindings; bindings win.
func templateVars(snapCtx, binds map[string]string) map[string]string {
	out := make(map[string]string, len(snapCtx)+len(binds))
	for k, v := range snapCtx {
		out[k] = v
	}
	for k, v := range binds {
		out[k] = v
	}
	return out
}
