package kafka

import (
	"context"
	"slices"
	"sync"

	"github.com/segmentio/kafka-go"
)

// offsets tracks fetched messages per partition. A group commit moves the
// partition's position past every earlier offset, so an offset is only
// committed once it and everything fetched before it in its partition
// succeeded. A message that keeps failing holds its partition back and is
// redelivered, with what followed it, after a restart or rebalance.
type offsets struct {
	mu    sync.Mutex
	parts map[partitionKey]*partition
}

type partitionKey struct {
	topic     string
	partition int
}

type partition struct {
	pending []int64 // fetch order
	done    map[int64]kafka.Message
}

func newOffsets() *offsets {
	return &offsets{parts: map[partitionKey]*partition{}}
}

func (o *offsets) part(m kafka.Message) *partition {
	k := partitionKey{m.Topic, m.Partition}
	p, ok := o.parts[k]
	if !ok {
		p = &partition{done: map[int64]kafka.Message{}}
		o.parts[k] = p
	}
	return p
}

func (o *offsets) fetched(m kafka.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p := o.part(m)
	p.pending = append(p.pending, m.Offset)
}

// succeeded marks m done and commits the last message of the partition's
// longest fully done prefix, if any. A failed commit is retried by the
// next success in that partition.
func (o *offsets) succeeded(ctx context.Context, m kafka.Message, commit func(context.Context, kafka.Message) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	p := o.part(m)
	p.done[m.Offset] = m

	n := 0
	for n < len(p.pending) {
		if _, ok := p.done[p.pending[n]]; !ok {
			break
		}
		n++
	}
	if n == 0 {
		return nil
	}
	if err := commit(ctx, p.done[p.pending[n-1]]); err != nil {
		return err
	}
	for _, off := range p.pending[:n] {
		delete(p.done, off)
	}
	p.pending = slices.Delete(p.pending, 0, n)
	return nil
}
