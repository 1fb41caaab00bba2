// Package config loads, defaults, normalizes, and validates the TOML
// configuration that drives the lecture processing pipeline. Every tunable
// the slide-synchronization engine exposes (detector choice, ratio threshold,
// debounce window, sampling interval) lives here rather than in code.
package config
