// ABOUTME: Namespaced key/value store abstraction behind the embedding cache
// ABOUTME: Backends: filesystem (default), SQLite and Charm KV
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrNotFound is returned by Store.Get when the key has no value
var ErrNotFound = errors.New("key not found")

// DefaultNamespace is used when a source has no usable identity
const DefaultNamespace = "default"

// Store is a key/value store scoped to one namespace
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Keys() ([]string, error)
	Clear() error
}

// Backend hands out namespaced stores over one physical database or directory
type Backend interface {
	Open(namespace string) (Store, error)
	Namespaces() ([]string, error)
	Close() error
}

// NamespaceFor turns a source identity (file name, URL host and path, video
// name) into a namespace safe for file names and keys. Identities that had to
// be rewritten get a short hash suffix so distinct sources never share one.
// Already safe names, including every name NamespaceFor returns, map to themselves.
func NamespaceFor(identity string) string {
	identity = strings.TrimSpace(identity)
	var sb strings.Builder
	for _, r := range identity {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	ns := strings.Trim(sb.String(), "_")
	if strings.Trim(ns, ".") == "" {
		return DefaultNamespace
	}
	if ns == identity {
		return ns
	}
	sum := sha256.Sum256([]byte(identity))
	return ns + "-" + hex.EncodeToString(sum[:4])
}
