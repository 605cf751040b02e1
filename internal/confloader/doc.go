// Package confloader loads daemon configuration from layered sources:
// built-in defaults, then a YAML file, then STABLEKIT_-prefixed
// environment variables, with later sources overriding earlier ones. A
// file watcher is provided for picking up config rewrites at runtime.
package confloader
