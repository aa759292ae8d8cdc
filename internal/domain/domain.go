// Package domain holds the shared contracts between layers.
package domain

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "imagedex:"
