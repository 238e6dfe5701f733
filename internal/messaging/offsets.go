package messaging

import (
	"sync"

	"github.com/segmentio/kafka-go"
)

// offsetTracker serializes group commits when messages are handled out of
// order. Kafka commits are high-water marks: committing offset N implicitly
// commits everything below N in the partition. With concurrent handlers a
// later message can finish first, so offsets are only released for commit
// once every lower offset in the partition has completed. A message that
// never completes blocks commits behind it; those messages are redelivered
// after a rebalance, which is the at-least-once contract.
type offsetTracker struct {
	mu         sync.Mutex
	partitions map[int]*partitionOffsets
}

type partitionOffsets struct {
	// next is the lowest offset not yet completed.
	next int64
	done map[int64]bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[int]*partitionOffsets)}
}

// track registers a fetched message. Fetches arrive in offset order per
// partition, so the first seen offset seeds the low-water mark.
func (t *offsetTracker) track(m kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.partitions[m.Partition]; !ok {
		t.partitions[m.Partition] = &partitionOffsets{next: m.Offset, done: make(map[int64]bool)}
	}
}

// complete marks a message as handled and returns the highest message in its
// partition that is now safe to commit, if the low-water mark advanced.
func (t *offsetTracker) complete(m kafka.Message) (kafka.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.partitions[m.Partition]
	if !ok {
		return kafka.Message{}, false
	}
	p.done[m.Offset] = true

	advanced := false
	for p.done[p.next] {
		delete(p.done, p.next)
		p.next++
		advanced = true
	}
	if !advanced {
		return kafka.Message{}, false
	}
	return kafka.Message{Topic: m.Topic, Partition: m.Partition, Offset: p.next - 1}, true
}
