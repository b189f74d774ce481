// Package id provides a 128-bit, lexicographically sortable identifier.
//
// The ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence], so
// byte-wise comparison preserves chronological order. The recorder uses IDs
// as Pebble keys, which makes a forward iteration a replay in receipt order.
//
//	g := id.NewGenerator(nil)
//	k := g.Next()
//	b := k.Bytes()
package id
