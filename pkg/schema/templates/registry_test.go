package templates

import (
	"strings"
	"testing"

	"github.com/distill-ai/distill/pkg/schema"
)

func TestNewRegistry_Builtins(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	names := r.Names()
	want := []string{"event", "job", "recipe", "review"}
	if len(names) != len(want) {
		t.Fatalf("expected %d templates, got %v", len(want), names)
	}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("names[%d]: expected %s, got %s", i, n, names[i])
		}
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	s, ok := r.Lookup("recipe")
	if !ok {
		t.Fatal("recipe template missing")
	}
	if s.Name != "recipe" {
		t.Errorf("expected schema name recipe, got %s", s.Name)
	}
	if s.Instructions == "" {
		t.Error("recipe template should carry extraction instructions")
	}

	hasIngredients := false
	for _, f := range s.Fields {
		if f.Name == "ingredients" {
			hasIngredients = true
			if f.Type != schema.TypeArray {
				t.Errorf("ingredients: expected array, got %s", f.Type)
			}
			if f.Items == nil || f.Items.Type != schema.TypeObject {
				t.Error("ingredients: expected object items")
			}
		}
	}
	if !hasIngredients {
		t.Error("recipe template missing ingredients field")
	}

	if _, ok := r.Lookup("nonexistent"); ok {
		t.Error("lookup of unknown template should fail")
	}
}

func TestRegistry_Register(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	custom, err := schema.FromYAML([]byte("name: memo\nfields:\n  - name: subject\n    type: string\n"))
	if err != nil {
		t.Fatalf("FromYAML failed: %v", err)
	}
	r.Register("memo", custom)

	got, ok := r.Lookup("memo")
	if !ok {
		t.Fatal("registered template not found")
	}
	if got.Name != "memo" {
		t.Errorf("expected name memo, got %s", got.Name)
	}
	if len(r.Names()) != 5 {
		t.Errorf("expected 5 templates after register, got %d", len(r.Names()))
	}
}

func TestRegistry_Descriptions(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	descs := r.Descriptions()
	if len(descs) != 4 {
		t.Fatalf("expected 4 descriptions, got %d", len(descs))
	}
	if !strings.Contains(descs["job"], "job descriptions") {
		t.Errorf("unexpected job description: %q", descs["job"])
	}
}

func TestTemplates_PromptsRenderable(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	for _, id := range r.Names() {
		s, _ := r.Lookup(id)
		prompt := s.ToPromptDescription()
		if !strings.Contains(prompt, "## Fields to Extract") {
			t.Errorf("%s: prompt missing field section", id)
		}
		if _, err := s.ToJSONSchema(); err != nil {
			t.Errorf("%s: ToJSONSchema failed: %v", id, err)
		}
	}
}
