package resume

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabled(t *testing.T) {
	r := New(false)
	assert.False(t, r.Enabled())

	_, err := r.Register(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrDisabled)

	_, _, err = r.Subscribe(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrDisabled)
}

func collectFrames(t *testing.T, frames <-chan []byte, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case frame := <-frames:
			out = append(out, string(frame))
		case <-timeout:
			t.Fatalf("timed out after %d of %d frames", len(out), n)
		}
	}
	return out
}

func TestLiveSubscriberReceivesFrames(t *testing.T) {
	r := New(true)
	ctx := context.Background()

	frames, cancel, err := r.Subscribe(ctx, "s1")
	require.NoError(t, err)
	defer cancel()

	pub, err := r.Register(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, pub.Publish([]byte(`{"type":"text-delta","delta":"hel"}`)))
	require.NoError(t, pub.Publish([]byte(`{"type":"text-delta","delta":"lo"}`)))
	require.NoError(t, pub.Publish([]byte(`{"type":"finish"}`)))

	got := collectFrames(t, frames, 3)
	assert.Contains(t, got[0], "hel")
	assert.Contains(t, got[2], "finish")
}

func TestLateSubscriberGetsReplay(t *testing.T) {
	r := New(true)
	ctx := context.Background()

	pub, err := r.Register(ctx, "s2")
	require.NoError(t, err)
	require.NoError(t, pub.Publish([]byte(`{"type":"text-delta","delta":"already streamed"}`)))
	require.NoError(t, pub.Publish([]byte(`{"type":"finish"}`)))

	frames, cancel, err := r.Subscribe(ctx, "s2")
	require.NoError(t, err)
	defer cancel()

	got := collectFrames(t, frames, 2)
	assert.Contains(t, got[0], "already streamed")
	assert.Contains(t, got[1], "finish")
}

func TestStreamsAreIsolated(t *testing.T) {
	r := New(true)
	ctx := context.Background()

	pubA, err := r.Register(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, pubA.Publish([]byte(`{"stream":"a"}`)))

	pubB, err := r.Register(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, pubB.Publish([]byte(`{"stream":"b"}`)))

	frames, cancel, err := r.Subscribe(ctx, "b")
	require.NoError(t, err)
	defer cancel()

	got := collectFrames(t, frames, 1)
	assert.Contains(t, got[0], `"b"`)
}

func TestClosedPublisherRejectsFrames(t *testing.T) {
	r := New(true)

	pub, err := r.Register(context.Background(), "s3")
	require.NoError(t, err)
	require.NoError(t, pub.Close())

	assert.Error(t, pub.Publish([]byte(`{}`)))
}
