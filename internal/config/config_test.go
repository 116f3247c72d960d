package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
		Search: SearchConfig{BoostScheme: "tiered"},
		Embedding: EmbeddingConfig{
			Providers: map[string]ProviderConfig{
				"nebius": {
					APIKey:  "test-key",
					BaseURL: "https://api.example.com/v1/",
				},
			},
			Vectorizers: map[string]VectorizerConfig{
				VectorizerText:  {Provider: "nebius", Model: "text-model", Dimensions: 1024},
				VectorizerImage: {Provider: "nebius", Model: "clip-model", Dimensions: 512},
			},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_InvalidBoostScheme(t *testing.T) {
	cfg := validConfig()
	cfg.Search.BoostScheme = "quadratic"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid boost scheme")
	}

	expected := `search.boost_scheme must be "tiered" or "incremental", got "quadratic"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_MissingVectorizer(t *testing.T) {
	cfg := validConfig()
	delete(cfg.Embedding.Vectorizers, VectorizerImage)

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing image vectorizer")
	}
}

func TestValidate_VectorizerWithoutDimensions(t *testing.T) {
	cfg := validConfig()
	vc := cfg.Embedding.Vectorizers[VectorizerText]
	vc.Dimensions = 0
	cfg.Embedding.Vectorizers[VectorizerText] = vc

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing dimensions")
	}
}

func TestValidate_VectorizerUnknownProvider(t *testing.T) {
	cfg := validConfig()
	vc := cfg.Embedding.Vectorizers[VectorizerText]
	vc.Provider = "missing"
	cfg.Embedding.Vectorizers[VectorizerText] = vc

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider reference")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 15 {
		t.Errorf("expected WriteTimeoutSec=15, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Search.TopN != 20 {
		t.Errorf("expected TopN=20, got %d", cfg.Search.TopN)
	}
	if cfg.Search.CallTimeoutSec != 3 {
		t.Errorf("expected CallTimeoutSec=3, got %d", cfg.Search.CallTimeoutSec)
	}
	if cfg.Search.BoostScheme != "tiered" {
		t.Errorf("expected BoostScheme=tiered, got %q", cfg.Search.BoostScheme)
	}
	if cfg.Index.HNSWM != 16 {
		t.Errorf("expected HNSWM=16, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.HNSWEFConstruct != 200 {
		t.Errorf("expected HNSWEFConstruct=200, got %d", cfg.Index.HNSWEFConstruct)
	}
	if cfg.LLM.TimeoutSec != 5 {
		t.Errorf("expected LLM TimeoutSec=5, got %d", cfg.LLM.TimeoutSec)
	}
	if cfg.Storage.KeyPrefix != "rankd:" {
		t.Errorf("expected KeyPrefix='rankd:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{ReadinessTimeout: 15},
		Search:   SearchConfig{TopN: 50, CallTimeoutSec: 10, BoostScheme: "incremental"},
		Index:    IndexConfig{HNSWM: 32, HNSWEFConstruct: 400},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Search.TopN != 50 {
		t.Errorf("expected TopN=50, got %d", cfg.Search.TopN)
	}
	if cfg.Search.BoostScheme != "incremental" {
		t.Errorf("expected BoostScheme=incremental, got %q", cfg.Search.BoostScheme)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RANKD_TEST_TOKEN", "tok-123")

	in := []byte("api_key: ${RANKD_TEST_TOKEN}\nmodel: ${RANKD_TEST_MODEL:-fallback-model}\n")
	out := string(expandEnvVars(in))

	if out != "api_key: tok-123\nmodel: fallback-model\n" {
		t.Errorf("unexpected expansion: %q", out)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}

	yaml := `
http:
  port: 9090
database:
  addrs: ["localhost:6379"]
embedding:
  providers:
    nebius:
      api_key: test
      base_url: https://api.example.com/v1/
  vectorizers:
    text:
      provider: nebius
      model: text-model
      dimensions: 1024
    image:
      provider: nebius
      model: clip-model
      dimensions: 512
`
	path := filepath.Join(dir, "config", "unit.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("unit")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port: got %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Search.TopN != 20 {
		t.Errorf("defaults not applied: TopN=%d", cfg.Search.TopN)
	}
	if cfg.Embedding.Vectorizers[VectorizerImage].Dimensions != 512 {
		t.Errorf("image vectorizer not parsed: %+v", cfg.Embedding.Vectorizers)
	}
}
