package updater

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// Rule is one text transformation applied to script assets.
type Rule interface {
	Apply(text string) (string, error)
}

// regexRule replaces every match of a .NET-flavoured pattern; look-behind is
// what keeps "../x" from being rewritten as if it were "./x".
type regexRule struct {
	pattern     *regexp2.Regexp
	replacement string
}

// Apply implements Rule.
func (r regexRule) Apply(text string) (string, error) {
	out, err := r.pattern.Replace(text, r.replacement, -1, -1)
	if err != nil {
		return "", fmt.Errorf("replace %s: %w", r.pattern.String(), err)
	}

	return out, nil
}

// literalRule replaces every exact occurrence of old.
type literalRule struct {
	old string
	new string
}

// Apply implements Rule.
func (r literalRule) Apply(text string) (string, error) {
	return strings.ReplaceAll(text, r.old, r.new), nil
}

// RegexRule rewrites matches of pattern with replacement.
func RegexRule(pattern, replacement string) Rule {
	return regexRule{
		pattern:     regexp2.MustCompile(pattern, regexp2.None),
		replacement: replacement,
	}
}

// LiteralRule rewrites exact occurrences of old with replacement.
func LiteralRule(old, replacement string) Rule {
	return literalRule{old: old, new: replacement}
}

// HideElementRule appends an opacity reset right after an exact element
// creation statement, on a new line with the given indentation.
func HideElementRule(statement, variable, indent string) Rule {
	return literalRule{
		old: statement,
		new: statement + "\n" + indent + variable + ".style.opacity = '0'; // Set the opacity to 0",
	}
}

// DefaultRules returns the ordered patch set for upstream scripts.
// Order matters: a later rule must never see text produced by an earlier one.
func DefaultRules() []Rule {
	return []Rule{
		RegexRule(`(?<!\.)\./kpatch\b`, "./psfree/kpatch"),
		RegexRule(`(?<!\.)\./module\b`, "./module"),
		RegexRule(`(?<!\.)\./rop\b`, "../rop"),
		LiteralRule(`alert("kernel exploit succeeded!");`, `//alert("kernel exploit succeeded!");`),
		HideElementRule("const textarea = document.createElement('textarea');", "textarea", "       "),
		HideElementRule("const fset = document.createElement('frameset');", "fset", "           "),
		HideElementRule("const input = document.createElement('input');", "input", "    "),
		HideElementRule("const foo = document.createElement('input');", "foo", "    "),
		HideElementRule("const bar = document.createElement('a');", "bar", "    "),
	}
}

// ApplyRules runs rules over text in order.
func ApplyRules(text string, rules []Rule) (string, error) {
	var err error

	for _, rule := range rules {
		if text, err = rule.Apply(text); err != nil {
			return "", err
		}
	}

	return text, nil
}
