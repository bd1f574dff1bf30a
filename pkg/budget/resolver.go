package budget

import (
	"fmt"
	"regexp"
	"strings"

	"mercator-hq/janus/pkg/budget/ledger"
)

// placeholderPattern matches {field_name} placeholders in key templates.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_.-]+)\}`)

// ResolvedBucket pairs a profile bucket with its concrete ledger key.
type ResolvedBucket struct {
	Bucket *Bucket
	Key    string
}

// Ref returns the ledger reference for this bucket.
func (r ResolvedBucket) Ref() ledger.Ref {
	return ledger.Ref{Key: r.Key, Limit: r.Bucket.Limit}
}

// ResolveKeys expands every bucket's key template against the context and
// returns the concrete ledger keys, in profile declaration order. The full
// key is "<profile>:<bucket>:<expanded template>".
//
// A template referencing a field absent from the context is a
// configuration error, not a runtime default. ResolveKeys is deterministic
// and side-effect-free.
func ResolveKeys(p *Profile, bc Context) ([]ResolvedBucket, error) {
	out := make([]ResolvedBucket, len(p.Buckets))
	for i := range p.Buckets {
		b := &p.Buckets[i]
		expanded, err := expandTemplate(b.KeyTemplate, bc)
		if err != nil {
			return nil, configErrorf(
				fmt.Sprintf("profiles.%s.buckets.%s.key_template", p.Name, b.Name),
				"%v", err,
			)
		}
		out[i] = ResolvedBucket{
			Bucket: b,
			Key:    p.Name + ":" + b.Name + ":" + expanded,
		}
	}
	return out, nil
}

// Refs converts resolved buckets to ledger references.
func Refs(resolved []ResolvedBucket) []ledger.Ref {
	refs := make([]ledger.Ref, len(resolved))
	for i, r := range resolved {
		refs[i] = r.Ref()
	}
	return refs
}

// expandTemplate substitutes {field} placeholders with context fields.
func expandTemplate(template string, bc Context) (string, error) {
	var missing []string
	expanded := placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		value, ok := bc.Field(name)
		if !ok {
			missing = append(missing, name)
			return m
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template %q references fields absent from context: %s",
			template, strings.Join(missing, ", "))
	}
	return expanded, nil
}
