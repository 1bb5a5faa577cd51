package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeScenario(t, "name: big\nagents: 5000\n")

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sc.Name != "big" || sc.Agents != 5000 {
		t.Errorf("overrides not applied: %+v", sc)
	}
	if sc.Frames != Default().Frames {
		t.Errorf("Frames = %d, want default %d", sc.Frames, Default().Frames)
	}
	if sc.DBPath != Default().DBPath {
		t.Errorf("DBPath = %q, want default %q", sc.DBPath, Default().DBPath)
	}
}

func TestLoadFullScenario(t *testing.T) {
	path := writeScenario(t, `
name: scripted
agents: 200
frames: 10
workers: 2
seed: 7
script: work.js
http_addr: ":9090"
db_path: bench.db
`)

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Scenario{
		Name: "scripted", Agents: 200, Frames: 10, Workers: 2,
		Seed: 7, Script: "work.js", HTTPAddr: ":9090", DBPath: "bench.db",
	}
	if sc != want {
		t.Errorf("Load = %+v, want %+v", sc, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load(missing) = nil error")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeScenario(t, "agents: [not a number\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load(invalid yaml) = nil error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr bool
	}{
		{name: "default is valid", mutate: func(s *Scenario) {}},
		{name: "negative agents", mutate: func(s *Scenario) { s.Agents = -1 }, wantErr: true},
		{name: "zero frames", mutate: func(s *Scenario) { s.Frames = 0 }, wantErr: true},
		{name: "negative workers", mutate: func(s *Scenario) { s.Workers = -2 }, wantErr: true},
		{name: "zero agents ok", mutate: func(s *Scenario) { s.Agents = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := Default()
			tt.mutate(&sc)
			err := sc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
