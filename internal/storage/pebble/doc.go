// Package pebblestore provides a thin wrapper around Pebble with an fsync
// policy, ordered range scans and a small metrics hook.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./journal",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	_ = db.Set([]byte("k"), []byte("v"))
//	_ = db.Scan(nil, nil, func(k, v []byte) bool { return true })
package pebblestore
