package relay

import (
	"context"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

// TopicSender keeps one Pub/Sub publisher per topic so batching and flow
// control are shared across drains.
type TopicSender struct {
	open func(topic string) *gcppubsub.Publisher

	mu         sync.Mutex
	publishers map[string]*gcppubsub.Publisher
}

// NewTopicSender uses open to create publishers on first use, e.g. pubsub.Client.Publisher.
func NewTopicSender(open func(topic string) *gcppubsub.Publisher) *TopicSender {
	return &TopicSender{open: open, publishers: map[string]*gcppubsub.Publisher{}}
}

func (s *TopicSender) Send(ctx context.Context, topic string, msg *gcppubsub.Message) Ack {
	p := s.publisher(topic)
	if p == nil {
		return nil
	}
	return p.Publish(ctx, msg)
}

func (s *TopicSender) publisher(topic string) *gcppubsub.Publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.publishers[topic]; ok {
		return p
	}
	p := s.open(topic)
	if p != nil {
		s.publishers[topic] = p
	}
	return p
}

// Stop flushes and stops every publisher opened so far.
func (s *TopicSender) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topic, p := range s.publishers {
		p.Stop()
		delete(s.publishers, topic)
	}
}
