// Package main provides the entry point for the gleaner CLI.
//
// Usage:
//
//	gleaner crawl <seed-url>
//	gleaner crawl --backend sqlite --dsn gleaner.db <seed-url>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
