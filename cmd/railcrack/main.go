// Package main provides the entry point for the railcrack CLI.
//
// railcrack classifies railway track photographs as cracked (Faulty) or
// intact (Normal). It serves the classifier over HTTP and ships the offline
// tools used around the model: batch classification, evaluation, artifact
// verification, variant parity and dataset splitting.
//
// Usage:
//
//	railcrack serve
//	railcrack classify <dir>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
