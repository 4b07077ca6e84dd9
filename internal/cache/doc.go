// Package cache holds synthesized sentence audio for the current session.
// Cache is a fixed-capacity LRU keyed by sentence text; Loader layers
// in-flight deduplication and non-blocking preloading on top of it.
package cache
