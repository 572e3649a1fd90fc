package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test retarget defaults
	if cfg.Retarget.FPS != 30 {
		t.Errorf("expected fps 30, got %g", cfg.Retarget.FPS)
	}
	if cfg.Retarget.RestFrame != 0 {
		t.Errorf("expected rest frame 0, got %d", cfg.Retarget.RestFrame)
	}
	if cfg.Retarget.Scale != 0 {
		t.Errorf("expected scale 0 (auto), got %g", cfg.Retarget.Scale)
	}
	if cfg.Retarget.ConvertSpace {
		t.Error("expected convert_space to be false by default")
	}
	if cfg.Retarget.SourceHips != "Hips" {
		t.Errorf("expected source hips 'Hips', got %s", cfg.Retarget.SourceHips)
	}
	if cfg.Retarget.TargetHips != "Hips" {
		t.Errorf("expected target hips 'Hips', got %s", cfg.Retarget.TargetHips)
	}
	if cfg.Retarget.TargetRoot != "Root" {
		t.Errorf("expected target root 'Root', got %s", cfg.Retarget.TargetRoot)
	}
	if cfg.Retarget.RootMotionAxes != "XZ" {
		t.Errorf("expected root motion axes 'XZ', got %s", cfg.Retarget.RootMotionAxes)
	}
	if cfg.Retarget.HipsAxes != "Y" {
		t.Errorf("expected hips axes 'Y', got %s", cfg.Retarget.HipsAxes)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "retarget.yaml")

	yamlContent := `
retarget:
  fps: 60
  rest_frame: 5
  scale: 1.5
  convert_space: true
  source_axes: "maya-y-up"
  target_axes: "gltf"
  source_hips: "pelvis"
  target_hips: "Pelvis"
  target_root: "Armature"
  root_motion_axes: "XYZ"
  hips_axes: ""
  workers: 4

output:
  take: "walk_retargeted"

logging:
  level: "debug"
  log_file: "retarget.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Retarget.FPS != 60 {
		t.Errorf("expected fps 60, got %g", cfg.Retarget.FPS)
	}
	if cfg.Retarget.RestFrame != 5 {
		t.Errorf("expected rest frame 5, got %d", cfg.Retarget.RestFrame)
	}
	if cfg.Retarget.Scale != 1.5 {
		t.Errorf("expected scale 1.5, got %g", cfg.Retarget.Scale)
	}
	if !cfg.Retarget.ConvertSpace {
		t.Error("expected convert_space to be true")
	}
	if cfg.Retarget.SourceAxes != "maya-y-up" {
		t.Errorf("expected source axes 'maya-y-up', got %s", cfg.Retarget.SourceAxes)
	}
	if cfg.Retarget.SourceHips != "pelvis" {
		t.Errorf("expected source hips 'pelvis', got %s", cfg.Retarget.SourceHips)
	}
	if cfg.Retarget.TargetRoot != "Armature" {
		t.Errorf("expected target root 'Armature', got %s", cfg.Retarget.TargetRoot)
	}
	if cfg.Retarget.Workers != 4 {
		t.Errorf("expected workers 4, got %d", cfg.Retarget.Workers)
	}

	if cfg.Output.Take != "walk_retargeted" {
		t.Errorf("expected output take 'walk_retargeted', got %s", cfg.Output.Take)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "retarget.log" {
		t.Errorf("expected log file 'retarget.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
retarget:
  fps: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/retarget.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create retarget.yaml in current directory
	configPath := filepath.Join(tmpDir, "retarget.yaml")
	if err := os.WriteFile(configPath, []byte("retarget:\n  fps: 24\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find retarget.yaml in current directory")
	}
}

func parseTestFlags(t *testing.T, args []string) *Flags {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f := RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return f
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		verify func(t *testing.T, cfg *Config)
	}{
		{
			name: "debug flag",
			args: []string{"-debug"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name: "fps flag",
			args: []string{"-fps", "24"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Retarget.FPS != 24 {
					t.Errorf("expected fps 24, got %g", cfg.Retarget.FPS)
				}
			},
		},
		{
			name: "scale flag",
			args: []string{"-scale", "2.0"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Retarget.Scale != 2.0 {
					t.Errorf("expected scale 2.0, got %g", cfg.Retarget.Scale)
				}
			},
		},
		{
			name: "joint name flags",
			args: []string{"-source-hips", "pelvis", "-target-root", "Armature"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Retarget.SourceHips != "pelvis" {
					t.Errorf("expected source hips 'pelvis', got %s", cfg.Retarget.SourceHips)
				}
				if cfg.Retarget.TargetRoot != "Armature" {
					t.Errorf("expected target root 'Armature', got %s", cfg.Retarget.TargetRoot)
				}
			},
		},
		{
			name: "unset flags keep defaults",
			args: []string{},
			verify: func(t *testing.T, cfg *Config) {
				def := Default()
				if cfg.Retarget.FPS != def.Retarget.FPS {
					t.Errorf("expected default fps %g, got %g", def.Retarget.FPS, cfg.Retarget.FPS)
				}
				if cfg.Retarget.SourceHips != def.Retarget.SourceHips {
					t.Errorf("expected default source hips %s, got %s", def.Retarget.SourceHips, cfg.Retarget.SourceHips)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := parseTestFlags(t, tt.args)
			cfg := Default()
			f.apply(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "retarget.yaml")

	yamlContent := `
retarget:
  fps: 24
  workers: 2
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Flags override the config file
	f := parseTestFlags(t, []string{"-config", configPath, "-fps", "60"})

	cfg, err := Load(f)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// FPS should be from flag (60), not file (24)
	if cfg.Retarget.FPS != 60 {
		t.Errorf("expected fps 60 from flag, got %g", cfg.Retarget.FPS)
	}

	// Workers should be from file (2) since no flag override
	if cfg.Retarget.Workers != 2 {
		t.Errorf("expected workers 2 from file, got %d", cfg.Retarget.Workers)
	}
}
