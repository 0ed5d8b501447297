// Package cli defines the git-archive-all command: flag surface, config
// merging, and the orchestration from parsed options to a written archive.
package cli
