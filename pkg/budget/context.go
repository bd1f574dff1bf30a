package budget

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Well-known context field names. Profiles may reference any field name in
// key templates; these are the ones the default scope templates use.
const (
	FieldExecutionID = "execution_id"
	FieldGroupID     = "group_id"
	FieldAgentID     = "agent_id"
)

// Context is the immutable budget identity threaded through a call chain.
// Every nested or cross-service call carrying the same Context draws on
// the same wallet. Derive a new Context with With; the original is never
// mutated after creation.
type Context struct {
	fields map[string]string
}

// NewContext creates a Context from the given fields. The map is copied.
func NewContext(fields map[string]string) Context {
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return Context{fields: copied}
}

// NewExecutionContext mints a fresh execution id and returns a Context for
// it. Group and agent ids may be empty.
func NewExecutionContext(groupID, agentID string) Context {
	fields := map[string]string{
		FieldExecutionID: uuid.New().String(),
	}
	if groupID != "" {
		fields[FieldGroupID] = groupID
	}
	if agentID != "" {
		fields[FieldAgentID] = agentID
	}
	return Context{fields: fields}
}

// Field returns the named field and whether it is set.
func (c Context) Field(name string) (string, bool) {
	v, ok := c.fields[name]
	return v, ok
}

// ExecutionID returns the execution id field, or "" if unset.
func (c Context) ExecutionID() string {
	return c.fields[FieldExecutionID]
}

// With returns a derived Context with one field added or replaced.
// The receiver is unchanged.
func (c Context) With(name, value string) Context {
	derived := make(map[string]string, len(c.fields)+1)
	for k, v := range c.fields {
		derived[k] = v
	}
	derived[name] = value
	return Context{fields: derived}
}

// Fields returns a copy of all fields.
func (c Context) Fields() map[string]string {
	out := make(map[string]string, len(c.fields))
	for k, v := range c.fields {
		out[k] = v
	}
	return out
}

// Encode serializes the Context to a single header-safe string so a
// transport collaborator can propagate the wallet identity across service
// boundaries. Fields are sorted for a stable representation:
//
//	agent_id=researcher,execution_id=01f8...,group_id=team-7
//
// Values are URL-escaped. Decode with ParseContext.
func (c Context) Encode() string {
	keys := make([]string, 0, len(c.fields))
	for k := range c.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+url.QueryEscape(c.fields[k]))
	}
	return strings.Join(parts, ",")
}

// ParseContext decodes the wire form produced by Encode.
func ParseContext(s string) (Context, error) {
	fields := make(map[string]string)
	if s == "" {
		return Context{fields: fields}, nil
	}
	for _, part := range strings.Split(s, ",") {
		key, raw, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return Context{}, fmt.Errorf("malformed context field %q", part)
		}
		value, err := url.QueryUnescape(raw)
		if err != nil {
			return Context{}, fmt.Errorf("malformed context value in %q: %w", part, err)
		}
		fields[key] = value
	}
	return Context{fields: fields}, nil
}

type contextKey struct{}

// Inject attaches the budget Context to a standard context.Context so it
// rides along with request-scoped plumbing.
func Inject(ctx context.Context, bc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, bc)
}

// FromContext extracts the budget Context attached by Inject.
func FromContext(ctx context.Context) (Context, bool) {
	bc, ok := ctx.Value(contextKey{}).(Context)
	return bc, ok
}
