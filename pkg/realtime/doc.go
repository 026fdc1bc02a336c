// Package realtime provides a Redis-backed realtime store for Bandstand: a table of
// records with a row-level change feed, ephemeral broadcast channels, and presence
// channels.
//
// # Overview
//
// The store is the single authoritative source of truth. Clients fetch a snapshot of a
// table, mutate it through InsertRecords/UpdateRecord/DeleteRecord, and observe every
// committed mutation through a change feed subscription. Broadcast and presence
// channels carry transient state that is never persisted: a broadcast is delivered only
// to the subscribers connected at publish time, and presence entries disappear when a
// participant untracks or stops refreshing its heartbeat.
//
// # Delivery guarantees
//
// All subscriptions are built on Redis Pub/Sub. Delivery is best-effort: a slow or
// disconnected subscriber may miss messages, and no ordering is promised across
// channels. Consumers are expected to apply events idempotently.
//
// # Usage Example
//
//	import "github.com/dyluth/bandstand/pkg/realtime"
//
//	client, err := realtime.NewClient(&redis.Options{Addr: "localhost:6379"}, "default-1")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	sub, err := client.SubscribeChanges(ctx, "instruments")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sub.Close()
//
//	records, err := client.FetchRecords(ctx, "instruments")
//
// # Redis Schema
//
// All keys follow the pattern: bandstand:{instance_name}:{entity}...
//
// Records: bandstand:{instance_name}:table:{table}:record:{id} (hash)
// Ordering index: bandstand:{instance_name}:table:{table}:by_created_at (zset, score=created_at ms)
// ID sequence: bandstand:{instance_name}:table:{table}:seq
// Presence: bandstand:{instance_name}:presence:{channel} (hash, field=participant key)
//
// Pub/Sub channels:
//
// Change feed: bandstand:{instance_name}:table:{table}:changes
// Broadcast: bandstand:{instance_name}:broadcast:{channel}
// Presence sync: bandstand:{instance_name}:presence_events:{channel}
package realtime
