package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/utilitywarehouse/git-push-mirror/auth"
)

// pushUsername is the basic-auth username GitHub expects with token
// credentials.
const pushUsername = "x-access-token"

const loadCredsScript = `#!/bin/sh

case "$1" in
  Username*) echo "$REPO_USERNAME" ;;
  Password*) echo "$REPO_PASSWORD" ;;
esac
`

// authEnv returns env vars which make git authenticate the push without
// placing the token on the command line, where it would be visible to
// anything inspecting process listings.
func (m *PushMirror) authEnv(ctx context.Context, dir string) ([]string, error) {
	password, err := m.pushToken(ctx)
	if err != nil {
		return nil, err
	}

	credsLoader, err := ensureCredsLoader(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to write creds loader script err:%w", err)
	}

	return []string{
		fmt.Sprintf(`GIT_ASKPASS=%s`, credsLoader),
		fmt.Sprintf(`REPO_USERNAME=%s`, pushUsername),
		fmt.Sprintf(`REPO_PASSWORD=%s`, password),
	}, nil
}

// pushToken resolves the credential for the target: the configured
// static token, or a GitHub App installation token.
func (m *PushMirror) pushToken(ctx context.Context) (string, error) {
	if m.cfg.Auth.Token != "" {
		return m.cfg.Auth.Token, nil
	}

	token, err := m.getGithubAppToken(ctx)
	if err != nil {
		return "", fmt.Errorf("unable to get github app token err:%w", err)
	}
	return token, nil
}

// ensureCredsLoader writes the GIT_ASKPASS loader script into given dir
// if it is not already there.
func ensureCredsLoader(dir string) (string, error) {
	credsLoader := filepath.Join(dir, "push-mirror-creds-loader.sh")

	_, err := os.Stat(credsLoader)
	switch {
	case os.IsNotExist(err):
		if err := os.WriteFile(credsLoader, []byte(loadCredsScript), 0750); err != nil {
			return "", err
		}
	case err != nil:
		return "", fmt.Errorf("unable to check if script file exits err:%w", err)
	}

	return credsLoader, nil
}

func (m *PushMirror) getGithubAppToken(ctx context.Context) (string, error) {
	// reuse the token while it is valid for at least another 10 min
	if m.githubAppTokenExpiresAt.After(time.Now().UTC().Add(10 * time.Minute)) {
		return m.githubAppToken, nil
	}

	_, name := m.cfg.TargetOwnerRepo()

	// the push rewrites refs on the target so contents write access
	// is required
	req := auth.AppTokenRequest{
		Repositories: []string{name},
		Permissions:  map[string]string{"contents": "write"},
	}

	token, err := auth.AppInstallationToken(ctx,
		m.cfg.Auth.GithubAppID, m.cfg.Auth.GithubAppInstallationID, m.cfg.Auth.GithubAppPrivateKeyPath,
		req)
	if err != nil {
		return "", err
	}

	m.githubAppToken = token.Token
	m.githubAppTokenExpiresAt = token.ExpiresAt

	m.log.Debug("new github app access token created")

	return m.githubAppToken, nil
}
