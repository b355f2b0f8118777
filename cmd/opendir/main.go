// Package main provides the entry point for the opendir CLI.
//
// opendir crawls open directory listings, indexes the files it finds into a
// SQLite store, and searches, tags and downloads them later.
//
// Usage:
//
//	opendir index http://example.com/pub/
//	opendir search debian iso
//	opendir download 42
//
// See --help for all available options.
package main

// main is the entry point for opendir.
func main() {
	Execute()
}
