package mirror

import "testing"

func Test_branchInList(t *testing.T) {
	fullListing := `  master
  remotes/origin/HEAD -> origin/main
  remotes/origin/main
  remotes/origin/release-1.2`

	tests := []struct {
		name    string
		listing string
		branch  string
		want    bool
	}{
		{"local_name", "* main\n  dev", "main", true},
		{"remote_tracking_form", fullListing, "main", true},
		{"plain_name_in_listing", fullListing, "master", true},
		{"slash_in_branch", fullListing, "release-1.2", true},
		{"missing", fullListing, "ghost", false},
		{"empty_listing", "", "main", false},
		{"mirror_clone_listing", "  main\n  feature/x", "feature/x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := branchInList(tt.listing, tt.branch); got != tt.want {
				t.Errorf("branchInList() = %v, want %v", got, tt.want)
			}
		})
	}
}
