// Package config loads and validates the toolpin settings.
//
// Settings come from an optional YAML file; the install root can be
// overridden through the TOOLPIN_ROOT environment variable and defaults to
// a directory under the user's home. Every field has a usable default, so
// the tool runs with no settings file at all.
package config
