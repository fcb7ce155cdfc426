package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return file
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.ParseBatchSize != 1000 || cfg.ParseWorkers != 4 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Reporters) != 0 {
		t.Fatalf("default reporters = %v", cfg.Reporters)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	file := writeFile(t, "battlelog.json", `{"parseBatchSize":50,"reporters":["damage"]}`)
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ParseBatchSize != 50 || cfg.ParseWorkers != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Reporters, []string{"damage"}) {
		t.Fatalf("reporters = %v", cfg.Reporters)
	}
}

func TestLoadYAML(t *testing.T) {
	file := writeFile(t, "battlelog.yaml", "parseWorkers: 2\nauditDir: /srv/audit\nreporters:\n  - loot\n  - monsters\n")
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ParseWorkers != 2 || cfg.ParseBatchSize != 1000 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if got := cfg.ResolveAuditDir("/data"); got != "/srv/audit" {
		t.Fatalf("audit dir = %s", got)
	}
	if !reflect.DeepEqual(cfg.Reporters, []string{"loot", "monsters"}) {
		t.Fatalf("reporters = %v", cfg.Reporters)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, err := Load(writeFile(t, "battlelog.json", "{")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("BATTLELOG_PARSE_BATCH_SIZE", "250")
	t.Setenv("BATTLELOG_REPORTERS", "damage,loot")

	cfg := Default()
	if err := FromEnv(&cfg); err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.ParseBatchSize != 250 || cfg.ParseWorkers != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Reporters, []string{"damage", "loot"}) {
		t.Fatalf("reporters = %v", cfg.Reporters)
	}
}

func TestFromEnvBadValue(t *testing.T) {
	t.Setenv("BATTLELOG_PARSE_WORKERS", "many")
	cfg := Default()
	if err := FromEnv(&cfg); err == nil {
		t.Fatalf("expected error for non-numeric workers")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.ParseBatchSize = 0
	cfg.EventsQueryLimit = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, field := range []string{"parseBatchSize", "eventsQueryLimit"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("error %q does not mention %s", err, field)
		}
	}
}

func TestResolveAuditDirDefault(t *testing.T) {
	if got, want := Default().ResolveAuditDir("/data"), filepath.Join("/data", "audit"); got != want {
		t.Fatalf("audit dir = %s want %s", got, want)
	}
}
