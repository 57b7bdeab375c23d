package memorytransport

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/dogmatiq/eventhub/eventstream"
	"github.com/dogmatiq/eventhub/transport"
)

// DefaultPartitionCount is the number of partitions in a hub with a
// non-positive PartitionCount.
const DefaultPartitionCount = 4

// recordHeaderSize is the number of bytes that each event occupies in addition
// to its payload, for the purposes of computing offsets.
const recordHeaderSize = 32

// Hub is an in-memory event hub.
//
// It is an implementation of transport.Dialer that produces sessions bound to
// the hub itself.
type Hub struct {
	// Name is the name of the hub. If it is non-empty, sessions can only be
	// dialed using an endpoint with a matching hub name.
	Name string

	// PartitionCount is the number of partitions in the hub. If it is
	// non-positive, DefaultPartitionCount is used.
	PartitionCount int

	// Keys is a map of key name to key. If it is non-empty sessions must be
	// dialed with credentials that match one of its entries.
	Keys map[string]string

	// Now returns the current time. If it is nil, time.Now() is used.
	Now func() time.Time

	init       sync.Once
	m          sync.Mutex
	partitions []*partition
	index      map[string]*partition
	next       uint64
	sessions   int
	links      int
}

// partition is an append-only sequence of events.
type partition struct {
	id     string
	events []eventstream.Event
	size   int64
	ready  chan struct{}
}

// Dial authenticates creds and returns a new session for the hub.
func (h *Hub) Dial(
	ctx context.Context,
	ep transport.Endpoint,
	creds transport.Credentials,
) (transport.Session, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if h.Name != "" && ep.Hub != "" && ep.Hub != h.Name {
		return nil, transport.ErrUnknownHub
	}

	if len(h.Keys) != 0 {
		if k, ok := h.Keys[creds.KeyName]; !ok || k != creds.Key {
			return nil, transport.ErrUnauthorized
		}
	}

	h.setup()

	h.m.Lock()
	h.sessions++
	h.m.Unlock()

	return &session{
		hub:   h,
		links: map[*link]struct{}{},
	}, nil
}

// PartitionIDs returns the IDs of the hub's partitions.
func (h *Hub) PartitionIDs() []string {
	h.setup()

	ids := make([]string, len(h.partitions))
	for i, p := range h.partitions {
		ids[i] = p.id
	}

	return ids
}

// Append appends events directly to a specific partition.
//
// It returns the events as they were recorded.
func (h *Hub) Append(
	partitionID string,
	data ...eventstream.EventData,
) ([]eventstream.Event, error) {
	return h.publish(
		transport.Destination{PartitionID: partitionID},
		data,
	)
}

// Events returns the events that have been appended to a partition.
func (h *Hub) Events(partitionID string) ([]eventstream.Event, error) {
	h.setup()

	h.m.Lock()
	defer h.m.Unlock()

	p, ok := h.index[partitionID]
	if !ok {
		return nil, &transport.UnknownPartitionError{PartitionID: partitionID}
	}

	return append([]eventstream.Event(nil), p.events...), nil
}

// OpenSessions returns the number of sessions that have not been closed.
func (h *Hub) OpenSessions() int {
	h.m.Lock()
	defer h.m.Unlock()

	return h.sessions
}

// OpenLinks returns the number of links that have not been closed.
func (h *Hub) OpenLinks() int {
	h.m.Lock()
	defer h.m.Unlock()

	return h.links
}

// setup creates the hub's partitions the first time it is called.
func (h *Hub) setup() {
	h.init.Do(func() {
		n := h.PartitionCount
		if n <= 0 {
			n = DefaultPartitionCount
		}

		h.index = make(map[string]*partition, n)

		for i := 0; i < n; i++ {
			p := &partition{
				id: strconv.Itoa(i),
			}

			h.partitions = append(h.partitions, p)
			h.index[p.id] = p
		}
	})
}

// publish appends events to the partition chosen by d.
func (h *Hub) publish(
	d transport.Destination,
	data []eventstream.EventData,
) ([]eventstream.Event, error) {
	h.setup()

	h.m.Lock()
	defer h.m.Unlock()

	p, err := h.route(d)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	appended := make([]eventstream.Event, 0, len(data))

	for _, ed := range data {
		ev := eventstream.Event{
			Payload:      ed.Payload,
			Offset:       eventstream.Offset(strconv.FormatInt(p.size, 10)),
			Sequence:     int64(len(p.events)),
			EnqueuedAt:   now(),
			PartitionKey: d.PartitionKey,
			Properties:   ed.Properties,
		}

		p.events = append(p.events, ev)
		p.size += recordHeaderSize + int64(len(ed.Payload))
		appended = append(appended, ev)
	}

	if len(appended) != 0 && p.ready != nil {
		close(p.ready)
		p.ready = nil
	}

	return appended, nil
}

// route returns the partition that events published to d are appended to.
// It assumes h.m is already locked.
func (h *Hub) route(d transport.Destination) (*partition, error) {
	if d.PartitionID != "" {
		if p, ok := h.index[d.PartitionID]; ok {
			return p, nil
		}

		return nil, &transport.UnknownPartitionError{PartitionID: d.PartitionID}
	}

	n := uint64(len(h.partitions))

	if d.PartitionKey != "" {
		hash := fnv.New32a()
		_, _ = hash.Write([]byte(d.PartitionKey))
		return h.partitions[uint64(hash.Sum32())%n], nil
	}

	p := h.partitions[h.next%n]
	h.next++

	return p, nil
}

// resolve returns the index of the first event at or after pos.
// It assumes h.m is already locked.
func (p *partition) resolve(pos eventstream.Position) (int, error) {
	switch pos.Kind {
	case eventstream.PositionEarliest:
		return 0, nil

	case eventstream.PositionLatest:
		return len(p.events), nil

	case eventstream.PositionSequence:
		if pos.Inclusive {
			return int(pos.Sequence), nil
		}

		return int(pos.Sequence) + 1, nil

	case eventstream.PositionOffset:
		want, err := strconv.ParseInt(string(pos.Offset), 10, 64)
		if err != nil {
			return 0, err
		}

		for i, ev := range p.events {
			o, _ := strconv.ParseInt(string(ev.Offset), 10, 64)

			if o > want || (pos.Inclusive && o == want) {
				return i, nil
			}
		}

		return len(p.events), nil

	case eventstream.PositionEnqueuedTime:
		for i, ev := range p.events {
			if ev.EnqueuedAt.After(pos.EnqueuedTime) {
				return i, nil
			}
		}

		return len(p.events), nil
	}

	panic("unrecognized position kind")
}

// read returns up to max events beginning at index i. If there are no such
// events it returns a channel that is closed when the partition is next
// appended to.
//
// It assumes h.m is already locked.
func (p *partition) read(i, max int) ([]eventstream.Event, <-chan struct{}) {
	if i < len(p.events) {
		j := len(p.events)
		if max > 0 && j-i > max {
			j = i + max
		}

		return p.events[i:j:j], nil
	}

	if p.ready == nil {
		p.ready = make(chan struct{})
	}

	return nil, p.ready
}
