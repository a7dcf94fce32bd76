// Package config defines the settings of the host process and helpers to
// load them (defaults, optional YAML file, PSFREE_HOST_* environment
// overrides), validate them and save them back as YAML.
package config
