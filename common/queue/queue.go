package queue

import (
	"context"
	"sync"

	"github.com/boardforge/boardforge/common/logger"
	rediscommon "github.com/boardforge/boardforge/common/redis"
)

// Publisher is the post-commit notification channel. Callers publish the
// identifiers of freshly committed rows; delivery to live collaborators
// is the subscriber's concern, not ours.
type Publisher interface {
	Publish(ctx context.Context, topic string, message []byte) error
	Close() error
}

// MemoryPublisher buffers published messages per topic. Used in tests
// and when the realtime channel is disabled.
type MemoryPublisher struct {
	topics map[string][][]byte
	mu     sync.RWMutex
	log    *logger.Logger
}

// NewMemoryPublisher creates a new in-memory publisher
func NewMemoryPublisher(log *logger.Logger) *MemoryPublisher {
	return &MemoryPublisher{
		topics: make(map[string][][]byte),
		log:    log,
	}
}

// Publish records a message under a topic
func (p *MemoryPublisher) Publish(ctx context.Context, topic string, message []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.topics[topic] = append(p.topics[topic], message)
	return nil
}

// Messages returns the messages published to a topic
func (p *MemoryPublisher) Messages(topic string) [][]byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([][]byte, len(p.topics[topic]))
	copy(out, p.topics[topic])
	return out
}

// Close closes the publisher
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.topics = make(map[string][][]byte)
	return nil
}

// RedisPublisher publishes over redis pub/sub channels.
type RedisPublisher struct {
	client *rediscommon.Client
	log    *logger.Logger
}

// NewRedisPublisher creates a publisher backed by redis pub/sub
func NewRedisPublisher(client *rediscommon.Client, log *logger.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		log:    log,
	}
}

// Publish sends a message on a redis channel
func (p *RedisPublisher) Publish(ctx context.Context, topic string, message []byte) error {
	return p.client.PublishEvent(ctx, topic, string(message))
}

// Close closes the publisher. The redis client is owned by the
// container, so there is nothing to release here.
func (p *RedisPublisher) Close() error {
	return nil
}
