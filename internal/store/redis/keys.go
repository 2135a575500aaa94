package redis

const (
	// KeyPrefix namespaces every key written by pinmap
	KeyPrefix = "pinmap:"
	// KeyBookmarksSnapshot holds the JSON encoded bookmark collection
	KeyBookmarksSnapshot = KeyPrefix + "bookmarks:snapshot"
)

// SnapshotKey returns the Redis key for the bookmark snapshot
func SnapshotKey() string {
	return KeyBookmarksSnapshot
}
