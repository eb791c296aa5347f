// Package constants provides application-wide constant values.
package constants

const (
	// AppName is the canonical application name, recorded in lock files so
	// other processes can attribute a held lock.
	AppName = "vaultlock"

	// EnvPrefix namespaces the environment variables the application reads.
	EnvPrefix = "VAULTLOCK"

	// Tagline is shown in the CLI help header.
	Tagline = "Exclusive-access arbitration for vault database files"
)
