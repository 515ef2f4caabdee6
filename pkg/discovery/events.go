package discovery

import "sync"

const subscriberBuffer = 64

// broadcaster fans events out to subscribers without blocking the publisher.
// A subscriber that falls behind misses events.
type broadcaster struct {
	mu          sync.Mutex
	subscribers []chan Event
}

// Subscribe returns a channel that receives service events.
func (s *Service) Subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	s.events.mu.Lock()
	s.events.subscribers = append(s.events.subscribers, ch)
	s.events.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *Service) Unsubscribe(ch chan Event) {
	s.events.mu.Lock()
	defer s.events.mu.Unlock()

	for i, sub := range s.events.subscribers {
		if sub == ch {
			s.events.subscribers = append(s.events.subscribers[:i], s.events.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *broadcaster) publish(events ...Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, evt := range events {
		for _, ch := range b.subscribers {
			select {
			case ch <- evt:
			default:
			}
		}
	}
}
