package mirror

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/utilitywarehouse/git-push-mirror/giturl"
)

const (
	// DefaultTimeout bounds a complete mirror run, clone included.
	DefaultTimeout = 10 * time.Minute

	// minAllowedInterval is the smallest allowed gap between runs in
	// loop mode.
	minAllowedInterval = time.Second
)

// target must be a GitHub "owner/name" identifier
var targetRepoRgx = regexp.MustCompile(`^[\w.-]+/[\w.-]+$`)

// Config represents a source to target mirror pair.
type Config struct {
	// Source is the git url of the repository to mirror from.
	// scheme defaults to https and a '.git' suffix is ignored.
	Source string `yaml:"source_repo"`

	// Target is the GitHub repository to mirror to, as "owner/name".
	Target string `yaml:"target_repo"`

	// Branch which must exist on the source before anything is pushed.
	Branch string `yaml:"branch"`

	// Interval is the wait between mirror runs in loop mode.
	// zero means run once and exit.
	Interval time.Duration `yaml:"interval"`

	// Timeout represents the total time allowed for a single run.
	Timeout time.Duration `yaml:"mirror_timeout"`

	// SkipTargetCheck disables the GitHub API check that the target
	// repository exists before the forced push.
	SkipTargetCheck bool `yaml:"skip_target_check"`

	// Auth config for the push to the target.
	Auth Auth `yaml:"auth"`
}

// Auth represents authentication config for the target repository.
// Either a static token or GitHub App details must be set.
type Auth struct {
	// personal access token or installation token used for the push
	Token string `yaml:"token"`

	// GitHub App details
	// the application id or the client ID of the GitHub app
	GithubAppID string `yaml:"github_app_id"`
	// the installation id of the app (in the organization)
	GithubAppInstallationID string `yaml:"github_app_installation_id"`
	// path to the github app private key
	GithubAppPrivateKeyPath string `yaml:"github_app_private_key_path"`
}

// ValidateAndApplyDefaults normalises the source url, validates the
// target identifier and branch and fills in default durations.
func (c *Config) ValidateAndApplyDefaults() error {
	normalised, err := giturl.NormaliseRemote(c.Source)
	if err != nil {
		return fmt.Errorf("source repo: %w", err)
	}
	c.Source = normalised

	c.Target = strings.TrimSuffix(strings.TrimSpace(c.Target), ".git")
	if c.Target == "" {
		return fmt.Errorf("target repo is required")
	}
	if !targetRepoRgx.MatchString(c.Target) {
		return fmt.Errorf("target repo '%s' must be in 'owner/name' form", c.Target)
	}

	c.Branch = strings.TrimSpace(c.Branch)
	if c.Branch == "" {
		return fmt.Errorf("branch is required")
	}

	if c.Auth.Token == "" && c.Auth.GithubAppInstallationID == "" {
		return fmt.Errorf("github token or github app auth config is required")
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if c.Interval != 0 && c.Interval < minAllowedInterval {
		return fmt.Errorf("provided interval between mirror runs is too short (%s), must be >= %s",
			c.Interval, minAllowedInterval)
	}

	return nil
}

// TargetOwnerRepo splits the validated target identifier into owner and
// repository name.
func (c *Config) TargetOwnerRepo() (string, string) {
	owner, name, _ := strings.Cut(c.Target, "/")
	return owner, name
}

// TargetPushURL returns the https push url of the target repository.
// the url carries no credentials, those are supplied to git separately.
func (c *Config) TargetPushURL() string {
	return fmt.Sprintf("https://github.com/%s.git", c.Target)
}
