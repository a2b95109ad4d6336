package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the cache key for a browser session record
func (r *CacheKeyStruct) SessionKey(sessionID string) string {
	return fmt.Sprintf("portal:session:%s", sessionID)
}

// InstitutesChannel returns the Redis PubSub channel carrying registry snapshots
func (r *CacheKeyStruct) InstitutesChannel() string {
	return "portal:institutes:changed"
}

// InstitutesLockKey returns the key guarding writes to the shared institutes file
func (r *CacheKeyStruct) InstitutesLockKey() string {
	return "portal:institutes:lock"
}

var CacheKey = NewCacheKeyStruct()
