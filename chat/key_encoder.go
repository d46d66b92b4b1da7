package chat

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// GenerateHash derives a stable channel identity from an agent's ordered
// discriminator keys. The function is pure and order-sensitive: identical key
// sequences always yield the identical identity, while a different ordering
// legitimately represents a different identity.
//
// This is a content-addressing scheme, not a cryptographic guarantee: agents
// whose keys collide are treated as interchangeable and share one channel.
func GenerateHash(keys []string) string {
	sum := sha256.Sum256([]byte(strings.Join(keys, ":")))
	return base64.StdEncoding.EncodeToString(sum[:])
}
