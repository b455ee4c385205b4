// Package cache keeps synthesized speech around so repeated lines skip the
// speech service. A Manager layers an in-memory LRU over an optional zstd
// compressed disk store.
package cache
