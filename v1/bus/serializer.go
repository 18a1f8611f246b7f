package bus

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

// Transport header names written by the serializer.
const (
	HeaderType        = "type"
	HeaderContentType = "content-type"
	HeaderBus         = "bus"

	ContentTypeJSON     = "application/json"
	ContentTypeProtobuf = "application/x-protobuf"
)

// Serializer converts envelopes to transport bodies and headers and back.
//
// Protobuf messages are encoded in their binary form and resolved through the
// global protobuf registry on decode. Other messages are encoded as JSON and
// must be registered with Register.
//
// Trace context headers are written as plain transport headers so that other
// consumers of the queue can continue the trace.
type Serializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewSerializer returns a serializer without registered types.
func NewSerializer() *Serializer {
	return &Serializer{types: make(map[string]reflect.Type)}
}

// Register makes messages of type T decodable from JSON.
func Register[T any](s *Serializer) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[TypeName(zero)] = reflect.TypeOf(zero)
}

// Encode returns the body and headers for env.
func (s *Serializer) Encode(env *Envelope) ([]byte, map[string]string, error) {
	headers := make(map[string]string)
	if tc, ok := Last[*TraceContextStamp](env); ok && tc != nil {
		for k, v := range tc.Headers {
			headers[k] = v
		}
	}
	if b, ok := Last[BusNameStamp](env); ok {
		headers[HeaderBus] = b.Name
	}

	var (
		body []byte
		err  error
	)
	if pm, ok := env.Message().(proto.Message); ok {
		body, err = proto.Marshal(pm)
		headers[HeaderType] = string(proto.MessageName(pm))
		headers[HeaderContentType] = ContentTypeProtobuf
	} else {
		body, err = json.Marshal(env.Message())
		headers[HeaderType] = env.MessageType()
		headers[HeaderContentType] = ContentTypeJSON
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode %s: %w", headers[HeaderType], err)
	}
	return body, headers, nil
}

// Decode rebuilds an envelope from a transport body and headers.
func (s *Serializer) Decode(body []byte, headers map[string]string) (*Envelope, error) {
	typ := headers[HeaderType]

	var msg any
	switch headers[HeaderContentType] {
	case ContentTypeProtobuf:
		mt, err := protoregistry.GlobalTypes.FindMessageByName(protoreflect.FullName(typ))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
		}
		pm := mt.New().Interface()
		if err := proto.Unmarshal(body, pm); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", typ, err)
		}
		msg = pm
	default:
		s.mu.RLock()
		rt, ok := s.types[typ]
		s.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
		}
		v := reflect.New(rt)
		if err := json.Unmarshal(body, v.Interface()); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", typ, err)
		}
		msg = v.Elem().Interface()
	}

	var stamps []Stamp
	tc := NewTraceContextStamp()
	for k, v := range headers {
		switch k {
		case HeaderType, HeaderContentType:
		case HeaderBus:
			stamps = append(stamps, BusNameStamp{Name: v})
		default:
			tc.Headers[k] = v
		}
	}
	if len(tc.Headers) > 0 {
		stamps = append(stamps, tc)
	}
	return Wrap(msg, stamps...), nil
}
