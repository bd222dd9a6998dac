package main

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/utilitywarehouse/git-push-mirror/mirror"
	"gopkg.in/yaml.v3"
)

// actorPlaceholder is displayed when GITHUB_ACTOR is not set
const actorPlaceholder = "unknown"

// fileConfig is the optional on-disk configuration. Environment
// variables take precedence over values set here.
type fileConfig struct {
	SourceRepo      string        `yaml:"source_repo"`
	TargetRepo      string        `yaml:"target_repo"`
	Branch          string        `yaml:"branch"`
	Interval        time.Duration `yaml:"interval"`
	MirrorTimeout   time.Duration `yaml:"mirror_timeout"`
	SkipTargetCheck bool          `yaml:"skip_target_check"`
	WebhookSecret   string        `yaml:"webhook_secret"`
	Auth            mirror.Auth   `yaml:"auth"`
}

// envString returns the value of the primary env var, falling back to
// the secondary name.
func envString(primary, fallback string) string {
	if v := os.Getenv(primary); v != "" {
		return v
	}
	return os.Getenv(fallback)
}

// requiredValue resolves a config value from the env var pair first and
// the config file second. A missing value is an error naming the
// variable.
func requiredValue(primary, fallback, fileValue string) (string, error) {
	if v := envString(primary, fallback); v != "" {
		return v, nil
	}
	if fileValue != "" {
		return fileValue, nil
	}
	return "", fmt.Errorf("%s is required (set %s or %s)", fallback, primary, fallback)
}

// resolveConfig reads all configuration exactly once at startup. Values
// are resolved env var first, config file second; flags override
// durations from the file.
func resolveConfig(c *cli.Command) (*mirror.Config, *fileConfig, error) {
	fileConf := &fileConfig{}
	if path := c.String("config"); path != "" {
		fc, err := parseConfigFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to parse config file: %w", err)
		}
		fileConf = fc
	}

	source, err := requiredValue("INPUT_SOURCE_REPO", "SOURCE_REPO", fileConf.SourceRepo)
	if err != nil {
		return nil, nil, err
	}

	target, err := requiredValue("INPUT_TARGET_REPO", "TARGET_REPO", fileConf.TargetRepo)
	if err != nil {
		return nil, nil, err
	}

	branch, err := requiredValue("INPUT_BRANCH", "BRANCH", fileConf.Branch)
	if err != nil {
		return nil, nil, err
	}

	auth := fileConf.Auth
	token, err := requiredValue("INPUT_GITHUB_TOKEN", "GITHUB_TOKEN", fileConf.Auth.Token)
	switch {
	case err == nil:
		auth.Token = token
	case auth.GithubAppInstallationID != "":
		// github app auth from the config file, no static token needed
	default:
		return nil, nil, err
	}

	if v := envString("INPUT_WEBHOOK_SECRET", "WEBHOOK_SECRET"); v != "" {
		fileConf.WebhookSecret = v
	}

	conf := &mirror.Config{
		Source:          source,
		Target:          target,
		Branch:          branch,
		Interval:        fileConf.Interval,
		Timeout:         fileConf.MirrorTimeout,
		SkipTargetCheck: fileConf.SkipTargetCheck || c.Bool("skip-target-check"),
		Auth:            auth,
	}

	if v := c.Duration("interval"); v != 0 {
		conf.Interval = v
	}
	if v := c.Duration("mirror-timeout"); v != 0 {
		conf.Timeout = v
	}

	if err := conf.ValidateAndApplyDefaults(); err != nil {
		return nil, nil, err
	}

	return conf, fileConf, nil
}

func parseConfigFile(path string) (*fileConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := validateConfigKeys(yamlFile); err != nil {
		return nil, err
	}

	conf := &fileConfig{}
	if err := yaml.Unmarshal(yamlFile, conf); err != nil {
		return nil, err
	}

	return conf, nil
}

// validateConfigKeys checks the yaml for keys which are not part of the
// config structs, a typo in a key would otherwise be silently dropped
func validateConfigKeys(yamlData []byte) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(yamlData, &raw); err != nil {
		return err
	}

	allowedKeys := getAllowedKeys(fileConfig{})
	if key := findUnexpectedKey(raw, allowedKeys); key != "" {
		return fmt.Errorf("unexpected key: .%v", key)
	}

	// check "auth" section
	if authMap, ok := raw["auth"].(map[string]interface{}); ok {
		allowedAuthKeys := getAllowedKeys(mirror.Auth{})
		if key := findUnexpectedKey(authMap, allowedAuthKeys); key != "" {
			return fmt.Errorf("unexpected key: .auth.%v", key)
		}
	}

	return nil
}

// getAllowedKeys retrieves a list of allowed keys from the specified struct
func getAllowedKeys(config interface{}) []string {
	var allowedKeys []string
	typ := reflect.TypeOf(config)

	for i := 0; i < typ.NumField(); i++ {
		yamlTag := typ.Field(i).Tag.Get("yaml")
		if yamlTag != "" {
			allowedKeys = append(allowedKeys, yamlTag)
		}
	}
	return allowedKeys
}

func findUnexpectedKey(raw map[string]interface{}, allowedKeys []string) string {
	for key := range raw {
		if !slices.Contains(allowedKeys, key) {
			return key
		}
	}

	return ""
}

// actor returns the display name of the initiating user. GITHUB_ACTOR is
// set by GitHub Actions; it is used for logging only.
func actor() string {
	if v := os.Getenv("GITHUB_ACTOR"); v != "" {
		return v
	}
	return actorPlaceholder
}
