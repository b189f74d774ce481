package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/rtstream/internal/runtime"
	"github.com/rzbill/rtstream/pkg/stream"
)

// newSendCommand constructs the `send` command.
func newSendCommand() *cobra.Command {
	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Send messages over a duplex endpoint",
		Long: "Send connects, waits until the connection is open and sends each --data value in order.\n" +
			"Without --data, every non-empty stdin line is sent. With --event-kind the data is wrapped\n" +
			`as {"kind":K,"payload":DATA}; otherwise it is sent as is.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, _ := cmd.Flags().GetStringArray("data")
			kind, _ := cmd.Flags().GetString("event-kind")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			if len(data) == 0 {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					if line := strings.TrimSpace(sc.Text()); line != "" {
						data = append(data, line)
					}
				}
				if err := sc.Err(); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}
			if len(data) == 0 {
				return errors.New("nothing to send; use --data or pipe lines on stdin")
			}
			if kind != "" {
				for _, d := range data {
					if !json.Valid([]byte(d)) {
						return fmt.Errorf("--data %q is not valid JSON", d)
					}
				}
			}

			logger, err := newLogger(cmd, cfg.Log)
			if err != nil {
				return err
			}
			rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
			if err != nil {
				return err
			}
			defer rt.Close()
			c := rt.Client()
			if c.Endpoint().Kind != stream.KindDuplex {
				return stream.ErrSendUnsupported
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := waitOpen(ctx, c); err != nil {
				return err
			}
			for _, d := range data {
				if kind != "" {
					err = c.SendMessage(ctx, kind, json.RawMessage(d))
				} else {
					err = c.Send(ctx, []byte(d))
				}
				if err != nil {
					return fmt.Errorf("send: %w", err)
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sent: %d\n", len(data))
			return nil
		},
	}
	addEndpointFlags(sendCmd.Flags())
	sendCmd.Flags().StringArray("data", nil, "Message to send (repeatable)")
	sendCmd.Flags().String("event-kind", "", "Wrap each message in an envelope with this kind")
	sendCmd.Flags().Duration("timeout", 10*time.Second, "Time allowed to connect and send")
	return sendCmd
}

// waitOpen connects c and blocks until it is open, the run fails or ctx ends.
func waitOpen(ctx context.Context, c *stream.Client) error {
	changes := make(chan stream.StateChange)
	done := make(chan struct{})
	sub := c.OnStateChange(func(ch stream.StateChange) {
		select {
		case changes <- ch:
		case <-done:
		}
	})
	defer sub.Unsubscribe()
	defer close(done)
	c.Connect()
	for {
		if c.State() == stream.StateOpen {
			return nil
		}
		select {
		case ch := <-changes:
			if ch.To == stream.StateOpen {
				return nil
			}
			if ch.To == stream.StateClosed && ch.Err != nil {
				return ch.Err
			}
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to open: %w", c.Endpoint().Label(), ctx.Err())
		}
	}
}
