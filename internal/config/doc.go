// Package config manages user-level settings stored at ~/.stackgen/config.yaml.
// It provides functions to load, read, and write configuration keys such as
// the cdk.json path and the version tag given to generated dependencies.
package config
