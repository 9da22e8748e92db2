package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
}

// Fingerprint is the cache key for a source and the text sent to it.
// Case and whitespace differences map to the same key.
func Fingerprint(source, text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	hash := sha256.Sum256([]byte(source + "\x00" + normalized))
	return fmt.Sprintf("%s:%x", source, hash[:8])
}
