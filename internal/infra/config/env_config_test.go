package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	. "github.com/mkrupp/menucase/internal/infra/config"
)

type testConfig struct {
	EnvConfig

	StringValue string   `env:"STRING_VALUE" default:"default"`
	IntValue    int      `env:"INT_VALUE" default:"42"`
	BoolValue   bool     `env:"BOOL_VALUE" default:"true"`
	FloatValue  float64  `env:"FLOAT_VALUE" default:"0.5"`
	Sizes       []int    `env:"SIZES" default:"200,400,800"`
	Names       []string `env:"NAMES" default:""`
	NoEnvTag    string
	Nested      testNestedConfig `envPrefix:"NESTED_"`
}

type testNestedConfig struct {
	NestedString string `env:"STRING" default:"nested-default"`
}

func defaultTestConfig() testConfig {
	return testConfig{
		StringValue: "default",
		IntValue:    42,
		BoolValue:   true,
		FloatValue:  0.5,
		Sizes:       []int{200, 400, 800},
		Nested: testNestedConfig{
			NestedString: "nested-default",
		},
	}
}

func setupEnv(t *testing.T, envVars map[string]string) {
	t.Helper()

	for k, v := range envVars {
		t.Setenv(k, v)
	}
}

func assertConfig(t *testing.T, got, want testConfig) {
	t.Helper()

	if got.StringValue != want.StringValue {
		t.Errorf("StringValue = %v, want %v", got.StringValue, want.StringValue)
	}
	if got.IntValue != want.IntValue {
		t.Errorf("IntValue = %v, want %v", got.IntValue, want.IntValue)
	}
	if got.BoolValue != want.BoolValue {
		t.Errorf("BoolValue = %v, want %v", got.BoolValue, want.BoolValue)
	}
	if got.FloatValue != want.FloatValue {
		t.Errorf("FloatValue = %v, want %v", got.FloatValue, want.FloatValue)
	}
	if !slices.Equal(got.Sizes, want.Sizes) {
		t.Errorf("Sizes = %v, want %v", got.Sizes, want.Sizes)
	}
	if !slices.Equal(got.Names, want.Names) {
		t.Errorf("Names = %v, want %v", got.Names, want.Names)
	}
	if got.NoEnvTag != want.NoEnvTag {
		t.Errorf("NoEnvTag = %v, want %v", got.NoEnvTag, want.NoEnvTag)
	}
	if got.Nested.NestedString != want.Nested.NestedString {
		t.Errorf("NestedString = %v, want %v", got.Nested.NestedString, want.Nested.NestedString)
	}
}

//nolint:paralleltest
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		envVars map[string]string
		want    func(*testConfig)
		wantErr bool
	}{
		{
			name:    "uses default values when env vars not set",
			envVars: map[string]string{},
			want:    func(*testConfig) {},
		},
		{
			name: "reads environment variables",
			envVars: map[string]string{
				"STRING_VALUE":  "env-value",
				"INT_VALUE":     "123",
				"BOOL_VALUE":    "false",
				"FLOAT_VALUE":   "0.75",
				"NESTED_STRING": "env-nested",
			},
			want: func(c *testConfig) {
				c.StringValue = "env-value"
				c.IntValue = 123
				c.BoolValue = false
				c.FloatValue = 0.75
				c.Nested.NestedString = "env-nested"
			},
		},
		{
			name:   "handles prefix correctly",
			prefix: "APP",
			envVars: map[string]string{
				"APP_STRING_VALUE": "prefixed-value",
			},
			want: func(c *testConfig) { c.StringValue = "prefixed-value" },
		},
		{
			name:   "prefers more specific prefix",
			prefix: "APP_SERVICE",
			envVars: map[string]string{
				"APP_STRING_VALUE":         "less-specific",
				"APP_SERVICE_STRING_VALUE": "more-specific",
			},
			want: func(c *testConfig) { c.StringValue = "more-specific" },
		},
		{
			name: "parses int lists with whitespace",
			envVars: map[string]string{
				"SIZES": " 100, 200 ,400 ",
			},
			want: func(c *testConfig) { c.Sizes = []int{100, 200, 400} },
		},
		{
			name: "parses string lists",
			envVars: map[string]string{
				"NAMES": "a,b",
			},
			want: func(c *testConfig) { c.Names = []string{"a", "b"} },
		},
		{
			name: "empty list yields empty slice",
			envVars: map[string]string{
				"SIZES": "",
			},
			want: func(c *testConfig) { c.Sizes = []int{} },
		},
		{
			name: "handles empty string values",
			envVars: map[string]string{
				"STRING_VALUE": "",
			},
			want: func(c *testConfig) { c.StringValue = "" },
		},
		{
			name: "fails on invalid int value",
			envVars: map[string]string{
				"INT_VALUE": "not-a-number",
			},
			wantErr: true,
		},
		{
			name: "fails on invalid list item",
			envVars: map[string]string{
				"SIZES": "200,big",
			},
			wantErr: true,
		},
		{
			name: "fails on invalid bool value",
			envVars: map[string]string{
				"BOOL_VALUE": "not-a-bool",
			},
			wantErr: true,
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t, tt.envVars)

			cfg := &testConfig{}
			err := Parse(ctx, cfg, tt.prefix)

			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				want := defaultTestConfig()
				tt.want(&want)
				assertConfig(t, *cfg, want)

				if cfg.Namespace() != tt.prefix {
					t.Errorf("Namespace() = %q, want %q", cfg.Namespace(), tt.prefix)
				}
			}
		})
	}
}

func TestParseRequiredVar(t *testing.T) {
	t.Parallel()

	cfg := &struct {
		EnvConfig
		Root string `env:"ROOT_ONLY_IN_TEST"`
	}{}

	err := Parse(context.Background(), cfg, "")
	if !errors.Is(err, ErrVarNotSet) {
		t.Errorf("expected error %v, got %v", ErrVarNotSet, err)
	}
}

func TestParseInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     interface{}
		wantErr error
	}{
		{
			name:    "non-pointer config",
			cfg:     testConfig{},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "non-struct pointer",
			cfg:     new(string),
			wantErr: ErrInvalidConfig,
		},
		{
			name: "missing EnvConfig embedding",
			cfg: &struct {
				Value string `env:"VALUE"`
			}{},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "unsupported field type",
			cfg: &struct {
				EnvConfig
				Value map[string]string `env:"VALUE" default:""`
			}{},
			wantErr: ErrUnsupportedVarType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Parse(context.Background(), tt.cfg, "")
			if err == nil {
				t.Error("expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

//nolint:paralleltest
func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")

	if err := os.WriteFile(envFile, []byte("MENUCASE_TEST_FROM_FILE=file\nMENUCASE_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}

	t.Setenv("MENUCASE_TEST_PRESET", "env")
	t.Cleanup(func() { os.Unsetenv("MENUCASE_TEST_FROM_FILE") })

	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), envFile); err != nil {
		t.Fatalf("LoadEnvFiles() error = %v", err)
	}

	if got := os.Getenv("MENUCASE_TEST_FROM_FILE"); got != "file" {
		t.Errorf("MENUCASE_TEST_FROM_FILE = %q, want %q", got, "file")
	}

	if got := os.Getenv("MENUCASE_TEST_PRESET"); got != "env" {
		t.Errorf("MENUCASE_TEST_PRESET = %q, want %q", got, "env")
	}
}
