// Package discovery finds devices on the local network and keeps them in an
// identity-keyed cache.
//
// A Service coalesces concurrent Discover calls into one operation, runs it
// through a MethodQueue, merges the devices it finds into the cache and hands
// every caller the same Result. The InvalidationManager tracks each device's
// recent states to decide how long its cache entry stays valid, and the
// MetricsCollector records every method attempt so the queue can learn
// which methods to try first.
package discovery
