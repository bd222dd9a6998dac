// Package giturl normalises and parses git remote urls.
package giturl

import (
	"fmt"
	"net/url"
	"strings"
)

// URL represents parsed git remote url
type URL struct {
	Scheme string // 'http' or 'https'
	Host   string // host or host:port
	Path   string // path to the repo without the repo name
	Repo   string // repository name from the path, without .git
}

// NormaliseRemote validates the given raw remote url and returns its
// canonical form. A trailing '.git' suffix is stripped and 'https://' is
// assumed when no explicit scheme is present.
// Normalising an already normalised url returns the same url.
func NormaliseRemote(rawURL string) (string, error) {
	nURL := strings.TrimSpace(rawURL)
	nURL = strings.TrimRight(nURL, "/")

	if nURL == "" {
		return "", fmt.Errorf("remote url cannot be empty")
	}

	nURL = strings.TrimSuffix(nURL, ".git")

	if !strings.HasPrefix(nURL, "http://") && !strings.HasPrefix(nURL, "https://") {
		nURL = "https://" + nURL
	}

	u, err := url.Parse(nURL)
	if err != nil {
		return "", fmt.Errorf("remote url '%s' is not a valid url: %w", rawURL, err)
	}

	if u.Host == "" {
		return "", fmt.Errorf("remote url '%s' has no host", rawURL)
	}

	return u.String(), nil
}

// Parse parses a raw remote url into a URL structure.
// the url is normalised first, so 'host.xz/path/to/repo.git' and
// 'https://host.xz/path/to/repo' parse to the same result.
func Parse(rawURL string) (*URL, error) {
	nURL, err := NormaliseRemote(rawURL)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(nURL)
	if err != nil {
		return nil, fmt.Errorf("remote url '%s' is not a valid url: %w", rawURL, err)
	}

	gURL := &URL{
		Scheme: u.Scheme,
		Host:   u.Host,
	}

	path := strings.Trim(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i != -1 {
		gURL.Path = path[:i]
		gURL.Repo = path[i+1:]
	} else {
		gURL.Repo = path
	}

	if gURL.Repo == "" {
		return nil, fmt.Errorf("remote url '%s' has no repo name", rawURL)
	}

	return gURL, nil
}

// Equals returns whether or not the two parsed git URLs are equivalent.
// remote urls can be written with or without an explicit scheme or '.git'
// suffix so urls with same host, path and repo name are for the same
// remote repository
func (lURL *URL) Equals(rURL *URL) bool {
	return lURL.Host == rURL.Host &&
		lURL.Path == rURL.Path &&
		lURL.Repo == rURL.Repo
}

// SameRawURL returns whether or not the two remote url strings are
// equivalent
func SameRawURL(lRepo, rRepo string) (bool, error) {
	lURL, err := Parse(lRepo)
	if err != nil {
		return false, err
	}
	rURL, err := Parse(rRepo)
	if err != nil {
		return false, err
	}

	return lURL.Equals(rURL), nil
}
