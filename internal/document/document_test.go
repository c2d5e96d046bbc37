package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Load() error = %v, want ConfigError", err)
	}
}

func TestLoadParseError(t *testing.T) {
	path := writeDoc(t, "bad.yaml", "a: [unclosed\n")
	_, err := Load(path)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Load() error = %v, want ConfigError", err)
	}
	if cfgErr.Unwrap() == nil {
		t.Fatal("ConfigError should carry the parser cause")
	}
}

func TestNodeAccessors(t *testing.T) {
	path := writeDoc(t, "doc.yaml", `
name: bot
speed: 1.5
pose: [1.0, 2.0, 0.5]
tags:
  - a
  - b
`)
	doc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !doc.IsMapping() {
		t.Fatal("root should be a mapping")
	}
	if s, ok := doc.Get("name").AsString(); !ok || s != "bot" {
		t.Fatalf("name = %q, %v", s, ok)
	}
	if f, ok := doc.Get("speed").AsFloat(); !ok || f != 1.5 {
		t.Fatalf("speed = %v, %v", f, ok)
	}
	if doc.Get("missing") != nil {
		t.Fatal("absent key should return nil")
	}
	if n := doc.Get("tags").Len(); n != 2 {
		t.Fatalf("tags len = %d, want 2", n)
	}
	pose, ok := doc.Get("pose").Pose()
	if !ok || pose != [3]float64{1.0, 2.0, 0.5} {
		t.Fatalf("pose = %v, %v", pose, ok)
	}
}

func TestPoseRejectsBadShapes(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"not a sequence", "pose: hello"},
		{"too short", "pose: [1, 2]"},
		{"too long", "pose: [1, 2, 3, 4]"},
		{"non numeric", "pose: [1, 2, north]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Load(writeDoc(t, "p.yaml", tc.yaml))
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := doc.Get("pose").Pose(); ok {
				t.Fatal("Pose() accepted an invalid shape")
			}
		})
	}
}

func TestValidateWorld(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"minimal valid", "properties: {}\nlayers: []\n", false},
		{"with models", "properties: {}\nlayers: []\nmodels: []\n", false},
		{"missing properties", "layers: []\n", true},
		{"properties not mapping", "properties: 5\nlayers: []\n", true},
		{"missing layers", "properties: {}\n", true},
		{"layers not sequence", "properties: {}\nlayers: nope\n", true},
		{"models not sequence", "properties: {}\nlayers: []\nmodels: 3\n", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := Load(writeDoc(t, "w.yaml", tc.yaml))
			if err != nil {
				t.Fatal(err)
			}
			err = ValidateWorld(doc)
			if tc.wantErr {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("ValidateWorld() = %v, want ConfigError", err)
				}
			} else if err != nil {
				t.Fatalf("ValidateWorld() = %v, want nil", err)
			}
		})
	}
}
