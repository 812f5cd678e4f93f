package redis

import "fmt"

// Key prefix for all server data
const keyPrefix = "hackstorm"

// accountKey returns the Redis key for an account record
func accountKey(name string) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, name)
}

// accountsIndexKey returns the Redis key for the SET of registered names
func accountsIndexKey() string {
	return fmt.Sprintf("%s:idx:accounts", keyPrefix)
}
