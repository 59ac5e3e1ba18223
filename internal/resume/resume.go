// Package resume keeps a replayable copy of in-flight response
// streams so a reconnecting client can catch up on a stream it lost.
package resume

import (
	"context"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ErrDisabled is returned when stream resumption is not configured.
var ErrDisabled = errors.New("resumable streams are disabled")

// Publisher records the frames of one response stream.
type Publisher interface {
	Publish(frame []byte) error
	Close() error
}

// Registry tracks in-flight streams. Frames published for a stream are
// replayed in order to every subscriber, including subscribers that
// attach after publishing started.
type Registry interface {
	Enabled() bool

	// Register opens a stream for writing.
	Register(ctx context.Context, streamID string) (Publisher, error)

	// Subscribe attaches to a stream. The returned cancel func must be
	// called when the consumer is done.
	Subscribe(ctx context.Context, streamID string) (<-chan []byte, func(), error)
}

// New returns a registry backed by an in-process pub/sub when enabled
// is true, otherwise a disabled registry.
func New(enabled bool) Registry {
	if !enabled {
		return Disabled{}
	}
	return &memoryRegistry{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
			Persistent:          true,
		}, watermill.NopLogger{}),
	}
}

// Disabled rejects every operation with ErrDisabled.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) Register(context.Context, string) (Publisher, error) {
	return nil, ErrDisabled
}

func (Disabled) Subscribe(context.Context, string) (<-chan []byte, func(), error) {
	return nil, nil, ErrDisabled
}

type memoryRegistry struct {
	pubsub *gochannel.GoChannel
}

func (r *memoryRegistry) Enabled() bool { return true }

func (r *memoryRegistry) Register(_ context.Context, streamID string) (Publisher, error) {
	return &memoryPublisher{pubsub: r.pubsub, topic: streamTopic(streamID)}, nil
}

func (r *memoryRegistry) Subscribe(ctx context.Context, streamID string) (<-chan []byte, func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	msgs, err := r.pubsub.Subscribe(subCtx, streamTopic(streamID))
	if err != nil {
		cancel()
		return nil, nil, err
	}

	frames := make(chan []byte, 64)
	go func() {
		defer close(frames)
		for msg := range msgs {
			msg.Ack()
			select {
			case frames <- msg.Payload:
			case <-subCtx.Done():
				return
			}
		}
	}()
	return frames, cancel, nil
}

// Close shuts the registry down and drops all buffered streams.
func (r *memoryRegistry) Close() error {
	return r.pubsub.Close()
}

type memoryPublisher struct {
	pubsub *gochannel.GoChannel
	topic  string

	mu     sync.Mutex
	closed bool
}

func (p *memoryPublisher) Publish(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("stream publisher is closed")
	}
	return p.pubsub.Publish(p.topic, message.NewMessage(watermill.NewUUID(), frame))
}

func (p *memoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func streamTopic(streamID string) string {
	return "stream." + streamID
}
