package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"github.com/utilitywarehouse/git-push-mirror/mirror"
)

// all env var names read by resolveConfig
var configEnvNames = []string{
	"INPUT_SOURCE_REPO", "SOURCE_REPO",
	"INPUT_TARGET_REPO", "TARGET_REPO",
	"INPUT_BRANCH", "BRANCH",
	"INPUT_GITHUB_TOKEN", "GITHUB_TOKEN",
	"INPUT_WEBHOOK_SECRET", "WEBHOOK_SECRET",
	"GIT_PUSH_MIRROR_CONFIG", "MIRROR_INTERVAL", "MIRROR_TIMEOUT",
}

// clearConfigEnv unsets every config env var for the duration of the
// test. t.Setenv with an empty value is not enough, a present but empty
// duration var would fail flag parsing.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnvNames {
		if v, ok := os.LookupEnv(name); ok {
			t.Cleanup(func() { os.Setenv(name, v) })
			os.Unsetenv(name)
		}
	}
}

func runResolveConfig(t *testing.T, args ...string) (*mirror.Config, *fileConfig, error) {
	t.Helper()

	var (
		conf     *mirror.Config
		fileConf *fileConfig
		rErr     error
	)
	cmd := &cli.Command{
		Flags: appFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			conf, fileConf, rErr = resolveConfig(c)
			return nil
		},
	}
	err := cmd.Run(context.Background(), append([]string{"git-push-mirror"}, args...))
	require.NoError(t, err)

	return conf, fileConf, rErr
}

func Test_resolveConfig_fromEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("INPUT_SOURCE_REPO", "github.com/org/upstream.git")
	t.Setenv("INPUT_TARGET_REPO", "org/downstream")
	t.Setenv("INPUT_BRANCH", "main")
	t.Setenv("INPUT_GITHUB_TOKEN", "token-1")

	conf, _, err := runResolveConfig(t)
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/org/upstream", conf.Source)
	assert.Equal(t, "org/downstream", conf.Target)
	assert.Equal(t, "main", conf.Branch)
	assert.Equal(t, "token-1", conf.Auth.Token)
	assert.Equal(t, mirror.DefaultTimeout, conf.Timeout)
	assert.Equal(t, time.Duration(0), conf.Interval)
}

func Test_resolveConfig_fallbackEnvNames(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SOURCE_REPO", "github.com/org/upstream")
	t.Setenv("TARGET_REPO", "org/downstream")
	t.Setenv("BRANCH", "main")
	t.Setenv("GITHUB_TOKEN", "token-2")

	conf, _, err := runResolveConfig(t)
	require.NoError(t, err)
	assert.Equal(t, "token-2", conf.Auth.Token)
}

func Test_resolveConfig_primaryWinsOverFallback(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("INPUT_SOURCE_REPO", "github.com/org/primary")
	t.Setenv("SOURCE_REPO", "github.com/org/fallback")
	t.Setenv("INPUT_TARGET_REPO", "org/downstream")
	t.Setenv("INPUT_BRANCH", "main")
	t.Setenv("INPUT_GITHUB_TOKEN", "token")

	conf, _, err := runResolveConfig(t)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/org/primary", conf.Source)
}

func Test_resolveConfig_missingEachRequiredVar(t *testing.T) {
	full := map[string]string{
		"INPUT_SOURCE_REPO":  "github.com/org/upstream",
		"INPUT_TARGET_REPO":  "org/downstream",
		"INPUT_BRANCH":       "main",
		"INPUT_GITHUB_TOKEN": "token",
	}
	// the error must name the variable that is missing
	wantErrName := map[string]string{
		"INPUT_SOURCE_REPO":  "SOURCE_REPO",
		"INPUT_TARGET_REPO":  "TARGET_REPO",
		"INPUT_BRANCH":       "BRANCH",
		"INPUT_GITHUB_TOKEN": "GITHUB_TOKEN",
	}

	for missing, errName := range wantErrName {
		t.Run(missing, func(t *testing.T) {
			clearConfigEnv(t)
			for name, value := range full {
				if name == missing {
					continue
				}
				t.Setenv(name, value)
			}

			_, _, err := runResolveConfig(t)
			require.Error(t, err)
			assert.Contains(t, err.Error(), errName)
			assert.Contains(t, err.Error(), "required")
		})
	}
}

func Test_resolveConfig_fileAndPrecedence(t *testing.T) {
	clearConfigEnv(t)

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
source_repo: host.xz/org/from-file
target_repo: org/from-file
branch: file-branch
interval: 1m
mirror_timeout: 3m
webhook_secret: hook-secret
auth:
  token: file-token
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	// env overrides the file for source, everything else from the file
	t.Setenv("SOURCE_REPO", "github.com/org/from-env")

	conf, fileConf, err := runResolveConfig(t, "--config", configFile)
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/org/from-env", conf.Source)
	assert.Equal(t, "org/from-file", conf.Target)
	assert.Equal(t, "file-branch", conf.Branch)
	assert.Equal(t, "file-token", conf.Auth.Token)
	assert.Equal(t, time.Minute, conf.Interval)
	assert.Equal(t, 3*time.Minute, conf.Timeout)
	assert.Equal(t, "hook-secret", fileConf.WebhookSecret)
}

func Test_resolveConfig_githubAppWithoutToken(t *testing.T) {
	clearConfigEnv(t)

	configFile := filepath.Join(t.TempDir(), "config.yaml")
	content := `
source_repo: host.xz/org/upstream
target_repo: org/downstream
branch: main
auth:
  github_app_id: "1234"
  github_app_installation_id: "5678"
  github_app_private_key_path: /etc/app/key.pem
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	conf, _, err := runResolveConfig(t, "--config", configFile)
	require.NoError(t, err)
	assert.Empty(t, conf.Auth.Token)
	assert.Equal(t, "5678", conf.Auth.GithubAppInstallationID)
}

func Test_validateConfigKeys(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"valid", "source_repo: a/b/c\nbranch: main\n", ""},
		{"unexpected_top_level", "source_repo: a/b/c\nsource: oops\n", "unexpected key: .source"},
		{"unexpected_auth_key", "auth:\n  tokenn: oops\n", "unexpected key: .auth.tokenn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigKeys([]byte(tt.yaml))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func Test_actor(t *testing.T) {
	t.Setenv("GITHUB_ACTOR", "")
	assert.Equal(t, actorPlaceholder, actor())

	t.Setenv("GITHUB_ACTOR", "octocat")
	assert.Equal(t, "octocat", actor())
}
