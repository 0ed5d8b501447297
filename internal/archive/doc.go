// Package archive writes repository snapshots to tar-family and zip files.
//
// The output format is selected from the destination filename suffix or an
// explicit override. A Writer streams entries into a temporary file and
// renames it over the destination on Close, so a failed run never leaves a
// partial archive behind.
package archive
