// Package subscriber manages newsletter subscriptions and token-based
// unsubscribes.
//
// Resubscribing rotates the subscriber's seed, which retires every token
// issued before. Unsubscribing keeps the seed so repeated clicks on the same
// link stay idempotent.
package subscriber
