package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetFlags gives every test a fresh flag set and viper instance
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
	})
	os.Args = append([]string{"mcp-rental-contract"}, args...)
	resetFlags()
}

func TestLoadFromFlags_Defaults(t *testing.T) {
	dir := t.TempDir()
	withArgs(t, "--output-dir="+dir)

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want stdio", cfg.Mode)
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want 8080", cfg.Port)
	}
	if cfg.OutputDirectory != dir {
		t.Errorf("LoadFromFlags() OutputDirectory = %v, want %v", cfg.OutputDirectory, dir)
	}
	if cfg.PrintCommand != "lp" {
		t.Errorf("LoadFromFlags() PrintCommand = %v, want lp", cfg.PrintCommand)
	}
	if cfg.Storage.URLExpiry != DefaultURLExpiry {
		t.Errorf("LoadFromFlags() URLExpiry = %v, want %v", cfg.Storage.URLExpiry, DefaultURLExpiry)
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	dir := t.TempDir()
	withArgs(t,
		"--mode=server",
		"--host=0.0.0.0",
		"--port=9090",
		"--output-dir="+dir,
		"--print-command=lpr",
		"--print-args=-P,ofis",
		"--export-workers=8",
		"--office=kadikoy",
		"--log-level=debug",
		"--log-format=json",
		"--s3-endpoint=minio:9000",
		"--s3-bucket=contracts",
		"--s3-url-expiry=2h",
	)

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" || cfg.Host != "0.0.0.0" || cfg.Port != 9090 {
		t.Errorf("LoadFromFlags() server = %s %s:%d", cfg.Mode, cfg.Host, cfg.Port)
	}
	if cfg.PrintCommand != "lpr" {
		t.Errorf("LoadFromFlags() PrintCommand = %v, want lpr", cfg.PrintCommand)
	}
	if strings.Join(cfg.PrintArgs, " ") != "-P ofis" {
		t.Errorf("LoadFromFlags() PrintArgs = %v, want [-P ofis]", cfg.PrintArgs)
	}
	if cfg.ExportWorkers != 8 {
		t.Errorf("LoadFromFlags() ExportWorkers = %v, want 8", cfg.ExportWorkers)
	}
	if cfg.OfficeID != "kadikoy" {
		t.Errorf("LoadFromFlags() OfficeID = %v, want kadikoy", cfg.OfficeID)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("LoadFromFlags() logging = %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if !cfg.Storage.Enabled() || cfg.Storage.Bucket != "contracts" || cfg.Storage.URLExpiry != 2*time.Hour {
		t.Errorf("LoadFromFlags() Storage = %+v", cfg.Storage)
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RENTAL_CONTRACT_MODE", "server")
	t.Setenv("RENTAL_CONTRACT_PORT", "3000")
	t.Setenv("RENTAL_CONTRACT_OUTPUT_DIR", dir)
	t.Setenv("RENTAL_CONTRACT_LOG_LEVEL", "warn")
	t.Setenv("RENTAL_CONTRACT_S3_ENDPOINT", "minio:9000")
	t.Setenv("RENTAL_CONTRACT_S3_BUCKET", "from-env")
	withArgs(t)

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want server", cfg.Mode)
	}
	if cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() Port = %v, want 3000", cfg.Port)
	}
	if cfg.OutputDirectory != dir {
		t.Errorf("LoadFromFlags() OutputDirectory = %v, want %v", cfg.OutputDirectory, dir)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want warn", cfg.LogLevel)
	}
	if cfg.Storage.Bucket != "from-env" {
		t.Errorf("LoadFromFlags() Storage.Bucket = %v, want from-env", cfg.Storage.Bucket)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("RENTAL_CONTRACT_PORT", "3000")
	withArgs(t, "--output-dir="+t.TempDir(), "--port=4000")

	cfg, err := LoadFromFlags()
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}
	if cfg.Port != 4000 {
		t.Errorf("LoadFromFlags() Port = %v, want 4000 (flag wins)", cfg.Port)
	}
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"mode", []string{"--mode=invalid"}, "mode must be"},
		{"port", []string{"--mode=server", "--port=70000"}, "port must be"},
		{"log level", []string{"--log-level=loud"}, "invalid log level"},
		{"workers", []string{"--export-workers=0"}, "export workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, append(tt.args, "--output-dir="+t.TempDir())...)

			_, err := LoadFromFlags()
			if err == nil {
				t.Fatal("LoadFromFlags() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadFromFlags() error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	withArgs(t, "--version")

	_, err := LoadFromFlags()
	if err == nil || err.Error() != "version requested" {
		t.Errorf("LoadFromFlags() error = %v, want version requested", err)
	}
}
