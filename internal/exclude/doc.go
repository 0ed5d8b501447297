// Package exclude implements export-ignore attribute matching.
//
// Pattern sets are parsed from .gitattributes content and scoped to the
// directory that declares them. A Ruleset holds the sets for one repository
// level and answers whether a tracked path is excluded from the archive,
// walking ancestor directories the way `git check-attr` inheritance does.
package exclude
