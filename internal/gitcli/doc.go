// Package gitcli shells out to the git binary for repository queries.
//
// The Runner interface abstracts process execution so tests can count and
// script invocations; ExecRunner is the production implementation. The
// Client type wraps a Runner with the queries the archiver needs: toplevel
// resolution, tracked-file and submodule listings, and the long-lived
// check-attr coprocess used for attribute lookups.
package gitcli
