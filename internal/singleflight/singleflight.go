// Package singleflight dedups concurrent identical lookups (cache misses,
// DB reads) into one in-flight call per key, the same per-resource-kind
// group pattern used for every cached read: one Group per result type,
// keyed by whatever identifies that lookup (a user id, an "event_id|
// market_id" pair, a page spec).
package singleflight

import "golang.org/x/sync/singleflight"

// Group dedups concurrent Do calls sharing the same key into a single
// underlying call, fanning the one result out to every caller that was
// waiting on it.
type Group[T any] struct {
	g singleflight.Group
}

func NewGroup[T any]() *Group[T] {
	return &Group[T]{}
}

// Do runs fn for key if no call for key is already in flight, otherwise it
// waits for the in-flight call and shares its result. shared reports
// whether the result was shared with another caller rather than computed
// fresh.
func (g *Group[T]) Do(key string, fn func() (T, error)) (result T, shared bool, err error) {
	v, shared, err := g.g.Do(key, func() (any, error) {
		return fn()
	})
	if v != nil {
		result = v.(T)
	}
	return result, shared, err
}
