package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPolicyDelaySequence(t *testing.T) {
	p := Policy{MaxAttempts: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	want := []time.Duration{100, 200, 400, 800, 1000, 1000}
	for i, w := range want {
		require.Equal(t, w*time.Millisecond, p.Delay(i+1), "attempt %d", i+1)
	}
	require.Equal(t, 100*time.Millisecond, p.Delay(0))
	require.Equal(t, time.Second, p.Delay(5000))
}

func TestPolicyFixedDelay(t *testing.T) {
	p := Policy{BaseDelay: 250 * time.Millisecond, MaxDelay: time.Second, Multiplier: 1}
	for attempt := 1; attempt < 5; attempt++ {
		require.Equal(t, 250*time.Millisecond, p.Delay(attempt))
	}
}

func TestPolicyDefaults(t *testing.T) {
	p := Policy{MaxAttempts: 3}.withDefaults()
	require.Equal(t, 3, p.MaxAttempts)
	require.Equal(t, 500*time.Millisecond, p.BaseDelay)
	require.Equal(t, 30*time.Second, p.MaxDelay)
	require.Equal(t, 2.0, p.Multiplier)

	p = Policy{BaseDelay: time.Minute, MaxDelay: time.Second, Multiplier: 0.5, MaxAttempts: -1}.withDefaults()
	require.Equal(t, time.Minute, p.MaxDelay)
	require.Equal(t, 2.0, p.Multiplier)
	require.Equal(t, 0, p.MaxAttempts)
}

func TestPolicyExhausted(t *testing.T) {
	p := Policy{MaxAttempts: 3}
	require.False(t, p.exhausted(2))
	require.True(t, p.exhausted(3))
	require.False(t, Policy{}.exhausted(1000), "zero means retry forever")
}
