// Package mirror replicates a source git repository to a target GitHub
// repository by force pushing a full mirror clone.
//
// A run is a strictly linear sequence of git subprocess calls: create a
// temporary run directory, mirror clone the source into it, verify the
// requested branch exists on the source, mirror push every ref to the
// target and remove the run directory. Any failed step aborts the run;
// the run directory is removed on failure too.
//
// The push is destructive: refs and tags on the target are overwritten
// unconditionally to match the source.
//
// Credentials are never placed on the git command line. The token (a
// static token or a short lived GitHub App installation token) is handed
// to git through a GIT_ASKPASS loader script.
package mirror
