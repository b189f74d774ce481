// Package recorder journals delivered stream messages to a local Pebble
// database so they can be replayed later.
package recorder

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	pebblestore "github.com/rzbill/rtstream/internal/storage/pebble"
	"github.com/rzbill/rtstream/pkg/id"
	"github.com/rzbill/rtstream/pkg/log"
	"github.com/rzbill/rtstream/pkg/stream"
)

var (
	keyPrefix = []byte("msg/")
	keyUpper  = []byte("msg0") // '0' sorts right after '/'
)

// Options configures a Recorder.
type Options struct {
	Dir     string
	Fsync   pebblestore.FsyncMode
	Metrics pebblestore.MetricsHook
	Logger  log.Logger
	Clock   clock.Clock
}

// Entry is one journaled message.
type Entry struct {
	Key     id.ID
	Message stream.InboundMessage
	// Endpoint is the label of the endpoint the message came from.
	Endpoint string
}

type header struct {
	Kind       string `json:"kind"`
	ID         string `json:"id,omitempty"`
	Seq        uint64 `json:"seq"`
	ReceivedAt int64  `json:"received_at_ms"`
	Endpoint   string `json:"endpoint,omitempty"`
}

// CorruptError describes a journal entry that failed to decode.
type CorruptError struct {
	Key []byte
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("recorder: corrupt entry %x: %v", e.Key, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Recorder appends messages under time-ordered keys.
type Recorder struct {
	db     *pebblestore.DB
	ids    *id.Generator
	logger log.Logger

	mu    sync.Mutex
	count int
}

// Open opens or creates the journal in opts.Dir. Keys continue after the
// last stored entry.
func Open(opts Options) (*Recorder, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = logger.WithComponent("recorder")
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir: opts.Dir,
		Fsync:   opts.Fsync,
		Metrics: opts.Metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	r := &Recorder{db: db, ids: id.NewGenerator(opts.Clock), logger: logger}

	last, err := db.LastKey(keyPrefix, keyUpper)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if last != nil {
		k, err := id.FromBytes(last[len(keyPrefix):])
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("recorder: bad key %x: %w", last, err)
		}
		r.ids.Resume(k)
	}
	n := 0
	if err := db.Scan(keyPrefix, keyUpper, func(_, _ []byte) bool { n++; return true }); err != nil {
		_ = db.Close()
		return nil, err
	}
	r.count = n
	logger.Debug("journal opened", log.Str("dir", opts.Dir), log.Int("entries", n))
	return r, nil
}

func entryKey(k id.ID) []byte {
	return append(append([]byte(nil), keyPrefix...), k[:]...)
}

// Append stores msg. endpoint labels the source.
func (r *Recorder) Append(endpoint string, msg stream.InboundMessage) (id.ID, error) {
	h, err := json.Marshal(header{
		Kind:       msg.Kind,
		ID:         msg.ID,
		Seq:        msg.Seq,
		ReceivedAt: msg.ReceivedAt.UnixMilli(),
		Endpoint:   endpoint,
	})
	if err != nil {
		return id.ID{}, err
	}
	k := r.ids.Next()
	if err := r.db.Set(entryKey(k), encodeRecord(h, msg.Payload)); err != nil {
		return id.ID{}, fmt.Errorf("recorder: append: %w", err)
	}
	r.mu.Lock()
	r.count++
	r.mu.Unlock()
	return k, nil
}

// Scan calls fn for every entry in append order. Corrupt entries are passed
// to onCorrupt (when non-nil) and skipped. fn returning false stops the scan.
func (r *Recorder) Scan(fn func(Entry) bool, onCorrupt func(*CorruptError)) error {
	return r.db.Scan(keyPrefix, keyUpper, func(key, value []byte) bool {
		e, err := decodeEntry(key, value)
		if err != nil {
			ce := &CorruptError{Key: append([]byte(nil), key...), Err: err}
			r.logger.Warn("skipping corrupt entry", log.Err(ce))
			if onCorrupt != nil {
				onCorrupt(ce)
			}
			return true
		}
		return fn(e)
	})
}

func decodeEntry(key, value []byte) (Entry, error) {
	k, err := id.FromBytes(key[len(keyPrefix):])
	if err != nil {
		return Entry{}, err
	}
	hb, payload, err := decodeRecord(value)
	if err != nil {
		return Entry{}, err
	}
	var h header
	if err := json.Unmarshal(hb, &h); err != nil {
		return Entry{}, fmt.Errorf("header: %w", err)
	}
	return Entry{
		Key:      k,
		Endpoint: h.Endpoint,
		Message: stream.InboundMessage{
			Kind:       h.Kind,
			Payload:    json.RawMessage(payload),
			ReceivedAt: time.UnixMilli(h.ReceivedAt),
			ID:         h.ID,
			Seq:        h.Seq,
		},
	}, nil
}

// Count returns the number of stored entries, corrupt ones included.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close closes the underlying database.
func (r *Recorder) Close() error { return r.db.Close() }
