// Package file provides the TOML configuration store and the typed
// Settings assembled from it and the environment.
package file
