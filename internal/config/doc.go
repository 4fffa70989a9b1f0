// Package config loads the agent configuration from a YAML file and the
// environment, validates it and turns each target section into a domain.Target.
package config
