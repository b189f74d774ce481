package stream

import (
	"github.com/benbjohnson/clock"

	"github.com/rzbill/rtstream/pkg/log"
)

// DefaultMaxInFlight bounds messages read but not yet delivered.
const DefaultMaxInFlight = 256

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger. The default discards everything.
func WithLogger(l log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces the wall clock used for backoff timers and ReceivedAt.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithMaxInFlight bounds how many received messages may wait for delivery
// before the reader stops pulling from the transport.
func WithMaxInFlight(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxInFlight = n
		}
	}
}

// WithDecoder overrides the frame decoder chosen from the endpoint kind.
func WithDecoder(d Decoder) Option {
	return func(c *Client) { c.decode = d }
}

// WithID sets the client id used in logs instead of a random uuid.
func WithID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.id = id
		}
	}
}
