package permission

import "path"

// Rule maps a tool-name glob pattern to a Decision. Patterns use path.Match
// syntax, so "github_*" covers every GitHub tool and "git_push" pins one.
type Rule struct {
	Pattern  string
	Decision Decision
}

// MatchRules resolves the rules that match toolName into a single decision.
// Deny outranks Ask, which outranks Allow, regardless of rule order. The
// second return reports whether any rule matched at all; callers fall back
// to mode defaults when it is false.
func MatchRules(rules []Rule, toolName string) (Decision, bool) {
	matched := false
	outcome := Allow

	for _, r := range rules {
		ok, err := path.Match(r.Pattern, toolName)
		if err != nil || !ok {
			continue
		}
		matched = true
		if r.Decision == Deny {
			return Deny, true
		}
		if r.Decision == Ask {
			outcome = Ask
		}
	}

	return outcome, matched
}
