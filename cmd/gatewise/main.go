// Gatewise is a tiered admission-control service.
//
// It sits in front of product APIs and enforces per-tier, per-class rate
// limits across two windows: a rolling one-minute burst window and a daily
// quota aligned to UTC midnight. Enforcement state lives either in-process
// or in Redis for multi-instance deployments.
//
// Usage:
//
//	# Start server with default configuration
//	gatewise run
//
//	# Start with custom configuration file
//	gatewise run --config /path/to/config.yaml
//
//	# Check a configuration file without starting
//	gatewise validate --config /path/to/config.yaml
//
//	# Show version information
//	gatewise version
package main

func main() {
	Execute()
}
