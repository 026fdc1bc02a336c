package realtime

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so several
// Bandstand instances can share one Redis server.
//
// Key pattern: bandstand:{instance_name}:{entity}:...

// RecordKey returns the Redis key for a single record hash.
// Pattern: bandstand:{instance_name}:table:{table}:record:{id}
func RecordKey(instanceName, table string, id int64) string {
	return fmt.Sprintf("bandstand:%s:table:%s:record:%d", instanceName, table, id)
}

// CreatedAtIndexKey returns the Redis key for the ZSET ordering a table by creation time.
// Pattern: bandstand:{instance_name}:table:{table}:by_created_at
func CreatedAtIndexKey(instanceName, table string) string {
	return fmt.Sprintf("bandstand:%s:table:%s:by_created_at", instanceName, table)
}

// SequenceKey returns the Redis key of the ID counter for a table.
// Pattern: bandstand:{instance_name}:table:{table}:seq
func SequenceKey(instanceName, table string) string {
	return fmt.Sprintf("bandstand:%s:table:%s:seq", instanceName, table)
}

// LastCreatedAtKey returns the Redis key holding the newest created_at (ms) issued for a table.
// Pattern: bandstand:{instance_name}:table:{table}:last_created_at
func LastCreatedAtKey(instanceName, table string) string {
	return fmt.Sprintf("bandstand:%s:table:%s:last_created_at", instanceName, table)
}

// PresenceKey returns the Redis key of the presence hash for a channel.
// Pattern: bandstand:{instance_name}:presence:{channel}
func PresenceKey(instanceName, channel string) string {
	return fmt.Sprintf("bandstand:%s:presence:%s", instanceName, channel)
}

// ChangesChannel returns the Pub/Sub channel carrying a table's change feed.
// Pattern: bandstand:{instance_name}:table:{table}:changes
func ChangesChannel(instanceName, table string) string {
	return fmt.Sprintf("bandstand:%s:table:%s:changes", instanceName, table)
}

// BroadcastChannel returns the Pub/Sub channel for ephemeral broadcasts.
// Pattern: bandstand:{instance_name}:broadcast:{channel}
func BroadcastChannel(instanceName, channel string) string {
	return fmt.Sprintf("bandstand:%s:broadcast:%s", instanceName, channel)
}

// PresenceEventsChannel returns the Pub/Sub channel announcing membership changes.
// Pattern: bandstand:{instance_name}:presence_events:{channel}
func PresenceEventsChannel(instanceName, channel string) string {
	return fmt.Sprintf("bandstand:%s:presence_events:%s", instanceName, channel)
}

// CreatedAtScore converts a creation time to a ZSET score (Unix milliseconds).
func CreatedAtScore(ms int64) float64 {
	return float64(ms)
}
