package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := Config{Database: DatabaseConfig{Addrs: []string{"localhost:6379"}}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing addrs")
	}
}

func TestValidate_Driver(t *testing.T) {
	tests := []struct {
		driver  string
		addrs   []string
		wantErr bool
	}{
		{"valkey", []string{"a:6379", "b:6379"}, false},
		{"redis", []string{"a:6379"}, false},
		{"qdrant", []string{"a:6334"}, false},
		{"qdrant", []string{"a:6334", "b:6334"}, true},
		{"mongo", []string{"a:27017"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.driver, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database.Driver = tc.driver
			cfg.Database.Addrs = tc.addrs

			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("driver %q addrs %v: err = %v, wantErr %v", tc.driver, tc.addrs, err, tc.wantErr)
			}
		})
	}
}

func TestValidate_Algorithm(t *testing.T) {
	cfg := validConfig()
	cfg.Index.Algorithm = "ivf"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Database.Driver != DriverValkey {
		t.Errorf("expected Driver=valkey, got %q", cfg.Database.Driver)
	}
	if cfg.Index.MaxBatchSize != 100 {
		t.Errorf("expected MaxBatchSize=100, got %d", cfg.Index.MaxBatchSize)
	}
	if cfg.Search.StatsSampleSize != 100 {
		t.Errorf("expected StatsSampleSize=100, got %d", cfg.Search.StatsSampleSize)
	}
	if cfg.Collection.Name != "pcaf_motor_vehicle_qa" {
		t.Errorf("expected collection pcaf_motor_vehicle_qa, got %q", cfg.Collection.Name)
	}
	if cfg.Dataset.Path != "src/data/motorVehicleQADataset.json" {
		t.Errorf("unexpected dataset path %q", cfg.Dataset.Path)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected Dimensions=1536, got %d", cfg.Embedding.Dimensions)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:       HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Index:      IndexConfig{Algorithm: "flat", MaxBatchSize: 50},
		Collection: CollectionConfig{Name: "custom"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Index.Algorithm != "flat" || cfg.Index.MaxBatchSize != 50 {
		t.Errorf("index overridden: %+v", cfg.Index)
	}
	if cfg.Collection.Name != "custom" {
		t.Errorf("expected collection custom, got %q", cfg.Collection.Name)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("QAINDEX_TEST_SET", "value")

	tests := []struct {
		in   string
		want string
	}{
		{"${QAINDEX_TEST_SET}", "value"},
		{"${QAINDEX_TEST_SET:-fallback}", "value"},
		{"${QAINDEX_TEST_UNSET:-fallback}", "fallback"},
		{"${QAINDEX_TEST_UNSET}", ""},
		{"plain", "plain"},
	}
	for _, tc := range tests {
		if got := string(expandEnvVars([]byte(tc.in))); got != tc.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("QAINDEX_TEST_ADDR", "valkey.internal:6379")

	path := filepath.Join(t.TempDir(), "test.yaml")
	body := `
database:
  addrs: ["${QAINDEX_TEST_ADDR}"]
embedding:
  api_key: ${QAINDEX_TEST_KEY:-dummy}
auth:
  api_keys: ["k1"]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Addrs[0] != "valkey.internal:6379" {
		t.Errorf("addr = %q", cfg.Database.Addrs[0])
	}
	if cfg.Embedding.APIKey != "dummy" {
		t.Errorf("api key = %q", cfg.Embedding.APIKey)
	}
	if len(cfg.Auth.APIKeys) != 1 {
		t.Errorf("api keys = %v", cfg.Auth.APIKeys)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad_Local(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Collection.Name == "" || len(cfg.Database.Addrs) == 0 {
		t.Errorf("unexpected local config: %+v", cfg)
	}
}
