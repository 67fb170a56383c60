// Package main provides the entry point of the raizes service.
//
// Usage:
//
//	raizes                       start the HTTP server (same as "serve")
//	raizes render --in req.json  render one report to a PDF file
//
// See --help for all available options.
package main

func main() {
	Execute()
}
