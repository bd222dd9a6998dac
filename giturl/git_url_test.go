package giturl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormaliseRemote(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		want    string
		wantErr bool
	}{
		{"empty", "", "", true},
		{"whitespace_only", "   ", "", true},
		{"control_char", "https://host.xz/re\npo", "", true},
		{"space_in_host", "https://host xz/repo", "", true},
		{"no_scheme", "github.com/org/repo", "https://github.com/org/repo", false},
		{"no_scheme_git_suffix", "github.com/org/repo.git", "https://github.com/org/repo", false},
		{"https", "https://github.com/org/repo", "https://github.com/org/repo", false},
		{"https_git_suffix", "https://github.com/org/repo.git", "https://github.com/org/repo", false},
		{"http_preserved", "http://host.xz/org/repo", "http://host.xz/org/repo", false},
		{"git_suffix_stripped_once", "https://host.xz/org/repo.git.git", "https://host.xz/org/repo.git", false},
		{"trailing_slash", "https://github.com/org/repo/", "https://github.com/org/repo", false},
		{"leading_space", " github.com/org/repo", "https://github.com/org/repo", false},
		{"with_port", "host.xz:8080/org/repo.git", "https://host.xz:8080/org/repo", false},
		{"no_host", "https:///repo", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormaliseRemote(tt.rawURL)
			if (err != nil) != tt.wantErr {
				t.Errorf("NormaliseRemote() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("NormaliseRemote() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormaliseRemote_idempotent(t *testing.T) {
	rawURLs := []string{
		"github.com/org/repo.git",
		"https://github.com/org/repo",
		"host.xz:8080/a/b/c/repo",
		"http://host.xz/org/repo",
	}
	for _, rawURL := range rawURLs {
		t.Run(rawURL, func(t *testing.T) {
			once, err := NormaliseRemote(rawURL)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			twice, err := NormaliseRemote(once)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if once != twice {
				t.Errorf("NormaliseRemote() not idempotent: %q != %q", once, twice)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		want    *URL
		wantErr bool
	}{
		{"normal_https", "https://github.com/org/repo.git",
			&URL{Scheme: "https", Host: "github.com", Path: "org", Repo: "repo"}, false},
		{"no_scheme", "host.xz/path/to/repo",
			&URL{Scheme: "https", Host: "host.xz", Path: "path/to", Repo: "repo"}, false},
		{"http_with_port", "http://host.xz:8080/org/repo.git",
			&URL{Scheme: "http", Host: "host.xz:8080", Path: "org", Repo: "repo"}, false},
		{"no_path", "https://host.xz/repo",
			&URL{Scheme: "https", Host: "host.xz", Path: "", Repo: "repo"}, false},
		{"no_repo", "https://host.xz", nil, true},
		{"empty", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.rawURL)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSameRawURL(t *testing.T) {
	tests := []struct {
		name    string
		lRepo   string
		rRepo   string
		want    bool
		wantErr bool
	}{
		{"same", "https://github.com/org/repo", "https://github.com/org/repo", true, false},
		{"git_suffix", "https://github.com/org/repo.git", "https://github.com/org/repo", true, false},
		{"no_scheme", "github.com/org/repo.git", "https://github.com/org/repo", true, false},
		{"diff_repo", "https://github.com/org/repo1", "https://github.com/org/repo2", false, false},
		{"diff_host", "https://host1.xz/org/repo", "https://host2.xz/org/repo", false, false},
		{"diff_path", "https://host.xz/org1/repo", "https://host.xz/org2/repo", false, false},
		{"invalid", "", "https://host.xz/org/repo", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SameRawURL(tt.lRepo, tt.rRepo)
			if (err != nil) != tt.wantErr {
				t.Errorf("SameRawURL() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SameRawURL() = %v, want %v", got, tt.want)
			}
		})
	}
}
