package grpctransport

import (
	"fmt"
	"time"

	"github.com/dogmatiq/eventhub/eventstream"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"
)

// codecName is the gRPC content-subtype used by the session service.
const codecName = "eventhub"

func init() {
	encoding.RegisterCodec(codec{})
}

// message is a value that is sent over the wire in protocol buffers format.
type message interface {
	marshal(b []byte) []byte
	unmarshal(b []byte) error
}

// codec is a gRPC codec that marshals the session service's messages.
type codec struct{}

func (codec) Name() string {
	return codecName
}

func (codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(message)
	if !ok {
		return nil, fmt.Errorf("can not marshal %T", v)
	}

	return m.marshal(nil), nil
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(message)
	if !ok {
		return fmt.Errorf("can not unmarshal into %T", v)
	}

	return m.unmarshal(data)
}

// empty is a message with no fields.
type empty struct{}

func (*empty) marshal(b []byte) []byte { return b }
func (*empty) unmarshal([]byte) error  { return nil }

// describeResponse is the response to the Describe() operation.
type describeResponse struct {
	PartitionIDs []string
}

func (m *describeResponse) marshal(b []byte) []byte {
	for _, id := range m.PartitionIDs {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, id)
	}

	return b
}

func (m *describeResponse) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			m.PartitionIDs = append(m.PartitionIDs, v)
			return n
		}

		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

// publishRequest is the request for the Publish() operation.
type publishRequest struct {
	PartitionID  string
	PartitionKey string
	Events       []eventstream.EventData
}

func (m *publishRequest) marshal(b []byte) []byte {
	b = appendString(b, 1, m.PartitionID)
	b = appendString(b, 2, m.PartitionKey)

	for _, ed := range m.Events {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalEventData(ed))
	}

	return b
}

func (m *publishRequest) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if typ != protowire.BytesType {
			return protowire.ConsumeFieldValue(num, typ, b)
		}

		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			m.PartitionID = v
			return n
		case 2:
			v, n := protowire.ConsumeString(b)
			m.PartitionKey = v
			return n
		case 3:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}

			ed, err := unmarshalEventData(v)
			if err != nil {
				return -1
			}

			m.Events = append(m.Events, ed)
			return n
		}

		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

// receiveRequest is the request for the Receive() operation.
type receiveRequest struct {
	LinkName      string
	ConsumerGroup string
	PartitionID   string
	Start         eventstream.Position
	MaxBatchSize  int
}

func (m *receiveRequest) marshal(b []byte) []byte {
	b = appendString(b, 1, m.LinkName)
	b = appendString(b, 2, m.ConsumerGroup)
	b = appendString(b, 3, m.PartitionID)
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, marshalPosition(m.Start))
	b = appendVarint(b, 5, uint64(m.MaxBatchSize))

	return b
}

func (m *receiveRequest) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.LinkName = v
			return n
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.ConsumerGroup = v
			return n
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.PartitionID = v
			return n
		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}

			p, err := unmarshalPosition(v)
			if err != nil {
				return -1
			}

			m.Start = p
			return n
		case num == 5 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.MaxBatchSize = int(v)
			return n
		}

		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

// batch is a message sent by the server for each batch of events received from
// a link.
type batch struct {
	Events []eventstream.Event
}

func (m *batch) marshal(b []byte) []byte {
	for _, ev := range m.Events {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalEvent(ev))
	}

	return b
}

func (m *batch) unmarshal(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n
			}

			ev, err := unmarshalEvent(v)
			if err != nil {
				return -1
			}

			m.Events = append(m.Events, ev)
			return n
		}

		return protowire.ConsumeFieldValue(num, typ, b)
	})
}

func marshalEventData(ed eventstream.EventData) []byte {
	var b []byte
	b = appendBytes(b, 1, ed.Payload)
	b = appendProperties(b, 2, ed.Properties)
	return b
}

func unmarshalEventData(b []byte) (ed eventstream.EventData, err error) {
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			ed.Payload = clone(v)
			return n
		case num == 2 && typ == protowire.BytesType:
			return consumeProperty(b, &ed.Properties)
		}

		return protowire.ConsumeFieldValue(num, typ, b)
	})

	return ed, err
}

func marshalEvent(ev eventstream.Event) []byte {
	var b []byte
	b = appendBytes(b, 1, ev.Payload)
	b = appendString(b, 2, string(ev.Offset))
	b = appendVarint(b, 3, uint64(ev.Sequence))
	b = appendTime(b, 4, ev.EnqueuedAt)
	b = appendString(b, 5, ev.PartitionKey)
	b = appendProperties(b, 6, ev.Properties)
	return b
}

func unmarshalEvent(b []byte) (ev eventstream.Event, err error) {
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			ev.Payload = clone(v)
			return n
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			ev.Offset = eventstream.Offset(v)
			return n
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			ev.Sequence = int64(v)
			return n
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			ev.EnqueuedAt = time.Unix(0, protowire.DecodeZigZag(v))
			return n
		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			ev.PartitionKey = v
			return n
		case num == 6 && typ == protowire.BytesType:
			return consumeProperty(b, &ev.Properties)
		}

		return protowire.ConsumeFieldValue(num, typ, b)
	})

	return ev, err
}

func marshalPosition(p eventstream.Position) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(p.Kind))
	b = appendString(b, 2, string(p.Offset))
	b = appendVarint(b, 3, uint64(p.Sequence))
	b = appendTime(b, 4, p.EnqueuedTime)
	b = appendVarint(b, 5, protowire.EncodeBool(p.Inclusive))
	return b
}

func unmarshalPosition(b []byte) (p eventstream.Position, err error) {
	err = consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.Kind = eventstream.PositionKind(v)
			return n
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			p.Offset = eventstream.Offset(v)
			return n
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.Sequence = int64(v)
			return n
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.EnqueuedTime = time.Unix(0, protowire.DecodeZigZag(v))
			return n
		case num == 5 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.Inclusive = protowire.DecodeBool(v)
			return n
		}

		return protowire.ConsumeFieldValue(num, typ, b)
	})

	return p, err
}

// consumeFields calls fn for each field in b.
//
// fn returns the number of bytes of b that it consumed, or a negative value
// if the field is malformed.
func consumeFields(
	b []byte,
	fn func(num protowire.Number, typ protowire.Type, b []byte) int,
) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n = fn(num, typ, b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}

	return nil
}

// consumeProperty consumes a single key/value pair and adds it to *props.
func consumeProperty(b []byte, props *map[string]string) int {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n
	}

	var key, value string

	err := consumeFields(v, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch {
		case num == 1 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			key = s
			return n
		case num == 2 && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			value = s
			return n
		}

		return protowire.ConsumeFieldValue(num, typ, b)
	})
	if err != nil {
		return -1
	}

	if *props == nil {
		*props = map[string]string{}
	}

	(*props)[key] = value

	return n
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendTime appends t as a zig-zag encoded number of nanoseconds since the
// Unix epoch. The zero time is omitted.
func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(t.UnixNano()))
}

func appendProperties(b []byte, num protowire.Number, props map[string]string) []byte {
	for k, v := range props {
		var p []byte
		p = appendString(p, 1, k)
		p = appendString(p, 2, v)

		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, p)
	}

	return b
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}

	return append([]byte(nil), b...)
}
