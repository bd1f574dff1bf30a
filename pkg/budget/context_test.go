package budget

import (
	"context"
	"testing"
)

func TestNewExecutionContext(t *testing.T) {
	bc := NewExecutionContext("team-7", "researcher")

	if bc.ExecutionID() == "" {
		t.Error("Expected a minted execution id")
	}
	if group, ok := bc.Field(FieldGroupID); !ok || group != "team-7" {
		t.Errorf("Expected group_id team-7, got %q (set=%v)", group, ok)
	}
	if agent, ok := bc.Field(FieldAgentID); !ok || agent != "researcher" {
		t.Errorf("Expected agent_id researcher, got %q (set=%v)", agent, ok)
	}

	other := NewExecutionContext("team-7", "researcher")
	if other.ExecutionID() == bc.ExecutionID() {
		t.Error("Expected distinct execution ids per context")
	}
}

func TestNewExecutionContext_OmitsEmptyFields(t *testing.T) {
	bc := NewExecutionContext("", "")

	if _, ok := bc.Field(FieldGroupID); ok {
		t.Error("Expected group_id to be unset")
	}
	if _, ok := bc.Field(FieldAgentID); ok {
		t.Error("Expected agent_id to be unset")
	}
}

func TestContext_WithDoesNotMutate(t *testing.T) {
	base := NewContext(map[string]string{FieldGroupID: "team-7"})
	derived := base.With(FieldAgentID, "writer")

	if _, ok := base.Field(FieldAgentID); ok {
		t.Error("Expected base context to be unchanged after With")
	}
	if agent, _ := derived.Field(FieldAgentID); agent != "writer" {
		t.Errorf("Expected derived agent_id writer, got %q", agent)
	}
	if group, _ := derived.Field(FieldGroupID); group != "team-7" {
		t.Errorf("Expected derived context to keep group_id, got %q", group)
	}
}

func TestNewContext_CopiesInput(t *testing.T) {
	fields := map[string]string{FieldGroupID: "team-7"}
	bc := NewContext(fields)

	fields[FieldGroupID] = "mutated"
	if group, _ := bc.Field(FieldGroupID); group != "team-7" {
		t.Errorf("Expected context to be isolated from input map, got %q", group)
	}
}

func TestContext_EncodeParseRoundTrip(t *testing.T) {
	bc := NewContext(map[string]string{
		FieldExecutionID: "exec-42",
		FieldGroupID:     "team 7/eu",
		FieldAgentID:     "researcher",
	})

	encoded := bc.Encode()
	parsed, err := ParseContext(encoded)
	if err != nil {
		t.Fatalf("ParseContext failed: %v", err)
	}

	for name, want := range bc.Fields() {
		if got, _ := parsed.Field(name); got != want {
			t.Errorf("Field %s = %q, want %q", name, got, want)
		}
	}
}

func TestContext_EncodeIsStable(t *testing.T) {
	bc := NewContext(map[string]string{
		FieldGroupID:     "team-7",
		FieldAgentID:     "researcher",
		FieldExecutionID: "exec-42",
	})

	want := "agent_id=researcher,execution_id=exec-42,group_id=team-7"
	if got := bc.Encode(); got != want {
		t.Errorf("Encode = %q, want %q", got, want)
	}
}

func TestParseContext_Malformed(t *testing.T) {
	if _, err := ParseContext("no-equals-sign"); err == nil {
		t.Error("Expected error for field without separator")
	}
	if _, err := ParseContext("=value"); err == nil {
		t.Error("Expected error for empty field name")
	}
}

func TestContext_InjectFromContext(t *testing.T) {
	bc := NewExecutionContext("team-7", "")
	ctx := Inject(context.Background(), bc)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("Expected budget context to be present")
	}
	if got.ExecutionID() != bc.ExecutionID() {
		t.Errorf("Expected execution id %q, got %q", bc.ExecutionID(), got.ExecutionID())
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("Expected no budget context on a bare context")
	}
}
