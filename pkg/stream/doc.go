// Package stream implements a long-lived real-time stream client.
//
// A Client owns one logical connection to an Endpoint, either a duplex socket
// or a server-push channel. It runs a small lifecycle state machine, reconnects
// with capped exponential backoff, decodes each transport frame into an
// InboundMessage and fans it out to every subscriber.
//
// # Lifecycle
//
//	Idle -> Connecting -> Open -> (disconnect) -> Reconnecting -> Connecting ...
//	any  -> Closing -> Closed          (Close)
//	Reconnecting budget exhausted -> Closed, Failed() == true
//
// # Delivery
//
// Notifications (messages, state changes, errors) are delivered on a single
// dispatcher goroutine in the order the client produced them. Callbacks never
// run while the client's lock is held, so a callback may call any Client
// method, including Close.
//
// # Usage
//
//	c := stream.New(stream.Endpoint{URL: "wss://example/feed", Kind: stream.KindDuplex}, transport)
//	sub := c.Subscribe(func(m stream.InboundMessage) { ... })
//	defer sub.Unsubscribe()
//	c.Connect()
//	defer c.Close()
package stream
