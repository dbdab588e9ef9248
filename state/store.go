// Package state holds the key/value storage abstraction every engine writes
// through. Keys are short prefixed strings, values are encoded blobs; the
// semantics mirror a host-provided contract store: Get returns nil for a
// missing key, Set and Delete never report errors (a broken local store is
// not something the engines can recover from, implementations panic instead).
package state

type Store interface {
	Set(key, value string)
	Get(key string) *string
	Delete(key string)
}
