// Package startup loads and validates configuration from the environment
// and provides build information and startup/shutdown logging helpers.
package startup
