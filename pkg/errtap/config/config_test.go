package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strongdm/errtap/pkg/errtap"
)

const tomlConfig = `
endpoint = "https://public@sentry.example.com/1"
release = "2.0.0"
environment = "client"
debug = true
sample_rate = 0.5

[[ignore]]
prefix = "Warning:"

[[ignore]]
pattern = "^timeout after \\d+ms$"

[[ignore]]
substring = "ResizeObserver"

[[ignore]]
pattern = "cost \\$5 exceeded"

[host]
production = true
version = "2.0.1"
`

const yamlConfig = `
endpoint: https://public@sentry.example.com/1
environment: server
force_enable: true
ignore:
  - substring: ECONNRESET
host:
  development: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_TOML(t *testing.T) {
	f, err := Load(writeFile(t, "errtap.toml", tomlConfig))
	require.NoError(t, err)

	opts := f.Options()
	assert.Equal(t, "https://public@sentry.example.com/1", opts.Endpoint)
	assert.Equal(t, "2.0.0", opts.Release)
	assert.Equal(t, errtap.VariantClient, opts.Environment)
	assert.True(t, opts.Debug)
	assert.Equal(t, 0.5, opts.SampleRate)
	require.Len(t, opts.IgnoreRules, 4)

	assert.True(t, errtap.ShouldDrop("ResizeObserver loop", opts.IgnoreRules))
	assert.True(t, errtap.ShouldDrop("Warning: deprecated", opts.IgnoreRules))
	assert.True(t, errtap.ShouldDrop("timeout after 300ms", opts.IgnoreRules))
	assert.True(t, errtap.ShouldDrop("cost $5 exceeded", opts.IgnoreRules))
	assert.False(t, errtap.ShouldDrop("a Warning: in the middle", opts.IgnoreRules))

	assert.Equal(t, errtap.StaticHost{Production: true, AppVersion: "2.0.1"}, f.StaticHost())
}

func TestLoad_YAML(t *testing.T) {
	for _, name := range []string{"errtap.yaml", "errtap.yml"} {
		t.Run(name, func(t *testing.T) {
			f, err := Load(writeFile(t, name, yamlConfig))
			require.NoError(t, err)

			opts := f.Options()
			assert.Equal(t, errtap.VariantServer, opts.Environment)
			assert.True(t, opts.ForceEnable)
			require.Len(t, opts.IgnoreRules, 1)
			assert.True(t, f.StaticHost().IsDevelopment())
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ERRTAP_ENDPOINT", "https://other@sentry.example.com/2")
	t.Setenv("ERRTAP_DEBUG", "false")
	t.Setenv("ERRTAP_SAMPLE_RATE", "0.1")

	f, err := Load(writeFile(t, "errtap.toml", tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://other@sentry.example.com/2", f.Endpoint)
	assert.False(t, f.Debug)
	assert.Equal(t, 0.1, f.SampleRate)
	assert.Equal(t, "2.0.0", f.Release)
}

func TestLoad_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("APP_RELEASE", "9.9.9")

	f, err := Load(writeFile(t, "errtap.yaml", "release: $APP_RELEASE\n"))
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", f.Release)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		env     map[string]string
		wantErr string
	}{
		{"unknown extension", "errtap.json", "{}", nil, "unsupported config format"},
		{"bad toml", "errtap.toml", "endpoint = ", nil, "failed to parse config"},
		{"bad yaml", "errtap.yaml", "endpoint: [", nil, "failed to parse config"},
		{"unknown environment", "errtap.toml", `environment = "mobile"`, nil, "unknown environment"},
		{"sample rate range", "errtap.toml", "sample_rate = 2.0", nil, "out of range"},
		{"bad pattern", "errtap.toml", "[[ignore]]\npattern = \"(\"", nil, "ignore rule 0"},
		{"empty ignore entry", "errtap.yaml", "ignore:\n  - {}", nil, "exactly one of"},
		{"two kinds in one entry", "errtap.yaml", "ignore:\n  - prefix: a\n    substring: b", nil, "exactly one of"},
		{"bad bool env", "errtap.toml", "", map[string]string{"ERRTAP_DEBUG": "maybe"}, "ERRTAP_DEBUG"},
		{"bad float env", "errtap.toml", "", map[string]string{"ERRTAP_SAMPLE_RATE": "lots"}, "ERRTAP_SAMPLE_RATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_IgnoreRulesKeepFileOrder(t *testing.T) {
	f, err := Load(writeFile(t, "errtap.toml", tomlConfig))
	require.NoError(t, err)

	var exprs []string
	for _, rule := range f.Options().IgnoreRules {
		exprs = append(exprs, rule.Expr())
	}
	assert.Equal(t, []string{"^Warning:", `^timeout after \d+ms$`, "ResizeObserver", `cost \$5 exceeded`}, exprs)
}

func TestLoad_IgnoreRulesAreNotExpanded(t *testing.T) {
	t.Setenv("HOME_DIR", "/home/ops")

	f, err := Load(writeFile(t, "errtap.yaml", "release: v$HOME_DIR\nignore:\n  - substring: $HOME_DIR\n  - pattern: 'cost \\$5'\n"))
	require.NoError(t, err)

	assert.Equal(t, "v/home/ops", f.Release)
	assert.Equal(t, "$HOME_DIR", f.Ignore[0].Substring)
	assert.Equal(t, `cost \$5`, f.Ignore[1].Pattern)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("ERRTAP_ENDPOINT", "https://public@sentry.example.com/1")
	t.Setenv("ERRTAP_ENVIRONMENT", "client")
	t.Setenv("ERRTAP_FORCE_ENABLE", "1")

	f, err := FromEnv()
	require.NoError(t, err)

	opts := f.Options()
	assert.Equal(t, errtap.VariantClient, opts.Environment)
	assert.True(t, opts.ForceEnable)
	assert.Empty(t, opts.IgnoreRules)
}
