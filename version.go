// Package plantkeep provides the version information for plantkeep.
package plantkeep

// Version is the current version of plantkeep.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
