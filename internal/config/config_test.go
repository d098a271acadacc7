package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Eval.TopK != EvalTopK || cfg.Eval.BatchSize != EvalBatchSize {
		t.Errorf("eval defaults not applied: %+v", cfg.Eval)
	}
	if len(cfg.Smartcn.Hosts) != 2 {
		t.Errorf("expected two content hosts, got %v", cfg.Smartcn.Hosts)
	}
}

func TestLoad_DeepMergeLaterWins(t *testing.T) {
	dir := t.TempDir()
	base := writeYAML(t, dir, "base.yaml", `
llm:
  model: base-model
  attempts: 5
  backoff: 3s
eval:
  top_k: 20
`)
	over := writeYAML(t, dir, "over.yaml", `
llm:
  model: override-model
`)

	cfg, err := Load(base, over)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	t.Run("override replaces leaf", func(t *testing.T) {
		if cfg.LLM.Model != "override-model" {
			t.Errorf("got %q, want override-model", cfg.LLM.Model)
		}
	})
	t.Run("sibling keys survive merge", func(t *testing.T) {
		if cfg.LLM.Attempts != 5 {
			t.Errorf("got attempts %d, want 5", cfg.LLM.Attempts)
		}
		if cfg.LLM.Backoff != 3*time.Second {
			t.Errorf("got backoff %v, want 3s", cfg.LLM.Backoff)
		}
		if cfg.Eval.TopK != 20 {
			t.Errorf("got top_k %d, want 20", cfg.Eval.TopK)
		}
	})
	t.Run("untouched sections keep defaults", func(t *testing.T) {
		if cfg.Eval.BatchSize != EvalBatchSize {
			t.Errorf("got batch size %d", cfg.Eval.BatchSize)
		}
	})
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("IRBENCH_OUTPUT_DIR", "/tmp/irbench-out")
	t.Setenv("QDRANT_PORT", "7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Paths.OutputDir != "/tmp/irbench-out" {
		t.Errorf("output dir = %q", cfg.Paths.OutputDir)
	}
	if cfg.Qdrant.Port != 7000 {
		t.Errorf("qdrant port = %d", cfg.Qdrant.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
