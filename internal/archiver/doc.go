// Package archiver enumerates a repository's archive entries.
//
// The Archiver walks a repository and its nested submodules through git
// listings, applies export-ignore exclusion per repository level, and streams
// the surviving entries into a Sink. The walk threads absolute paths and
// per-level offsets instead of changing directory, and issues exactly one
// file listing and one submodule listing per level.
package archiver
