package redis

import "fmt"

// Key prefix for all levelgrid data
const keyPrefix = "levelgrid"

// registrationsKey returns the sorted set of identifiers monitored for deletion,
// scored by last-checked time in ms since epoch
func registrationsKey() string {
	return fmt.Sprintf("%s:deletecheck:registrations", keyPrefix)
}

// runLeaseKey returns the key holding the current deletion check run lease
func runLeaseKey() string {
	return fmt.Sprintf("%s:deletecheck:lease", keyPrefix)
}

// levelKey returns the Redis key for a Level
func levelKey(name string) string {
	return fmt.Sprintf("%s:level:%s", keyPrefix, name)
}

// levelsByOwnerIndexKey returns the SET of level names authored by owner
func levelsByOwnerIndexKey(owner string) string {
	return fmt.Sprintf("%s:idx:levels_by_owner:%s", keyPrefix, owner)
}
