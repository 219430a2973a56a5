// Package config loads vmarena settings from VMARENA_* environment
// variables.
package config
