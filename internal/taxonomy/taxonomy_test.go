package taxonomy

import "testing"

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	if r.Len() == 0 {
		t.Fatal("Default() returned empty registry")
	}

	for _, id := range []string{"camera", "camera.movement", "subject", "subject.wardrobe", "technical.framerate", FallbackID} {
		if !r.IsRegistered(id) {
			t.Errorf("expected %q to be registered", id)
		}
	}

	cam, ok := r.Get("camera")
	if !ok {
		t.Fatal("camera category missing")
	}
	if cam.Parent != "" {
		t.Errorf("camera should be top-level, got parent %q", cam.Parent)
	}
	if len(cam.Attributes) == 0 {
		t.Error("camera should have attributes")
	}

	mov, ok := r.Get("camera.movement")
	if !ok {
		t.Fatal("camera.movement missing")
	}
	if mov.Parent != "camera" {
		t.Errorf("camera.movement parent = %q, want camera", mov.Parent)
	}
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"empty", "categories: []"},
		{"empty id", "categories:\n  - id: \"\"\n    label: X"},
		{"dotted top-level", "categories:\n  - id: camera.movement"},
		{"duplicate", "categories:\n  - id: camera\n  - id: camera"},
		{"not yaml", "{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tc.yaml)
			}
		})
	}
}

func TestParseAddsFallback(t *testing.T) {
	r, err := Parse([]byte("categories:\n  - id: camera\n    attributes: [lens]"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !r.IsRegistered(FallbackID) {
		t.Errorf("fallback category %q should always be registered", FallbackID)
	}
	if r.Fallback() != FallbackID {
		t.Errorf("Fallback() = %q, want %q", r.Fallback(), FallbackID)
	}
}

func TestParentOf(t *testing.T) {
	cases := []struct {
		role, want string
	}{
		{"camera", "camera"},
		{"camera.movement", "camera"},
		{"subject.wardrobe", "subject"},
		{"a.b.c", "a"},
		{"", ""},
		{".weird", ".weird"},
	}
	for _, tc := range cases {
		if got := ParentOf(tc.role); got != tc.want {
			t.Errorf("ParentOf(%q) = %q, want %q", tc.role, got, tc.want)
		}
	}
}

func TestSpecificity(t *testing.T) {
	cases := []struct {
		role string
		want int
	}{
		{"", 0},
		{"camera", 1},
		{"camera.movement", 2},
		{"a.b.c", 3},
	}
	for _, tc := range cases {
		if got := Specificity(tc.role); got != tc.want {
			t.Errorf("Specificity(%q) = %d, want %d", tc.role, got, tc.want)
		}
	}
}

func TestDisplayLabel(t *testing.T) {
	r := Default()
	tod, ok := r.Get("lighting.time_of_day")
	if !ok {
		t.Fatal("lighting.time_of_day missing")
	}
	if tod.Label != "Time Of Day" {
		t.Errorf("label = %q, want %q", tod.Label, "Time Of Day")
	}
}
