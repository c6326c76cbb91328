// Package push provides realtime transports for notification messages.
//
// Hub is an in-process transport: HTTP handlers subscribe to a channel name
// (e.g. "presence-message-42") and receive every message published to it.
// RedisPublisher publishes the same messages to Redis pub/sub, and Relay feeds
// messages from Redis back into a local Hub so that every instance can serve
// its own subscribers.
//
//	hub := push.NewHub(64)
//	realtime := notifications.NewRealtimeAdapter(registry, hub)
//
//	sub := hub.Subscribe(r.Context(), "presence-message-42")
//	defer sub.Close()
//	for msg := range sub.Receive() {
//	    // write msg as a server-sent event
//	}
package push
