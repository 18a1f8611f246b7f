package bus

import (
	"fmt"
	"reflect"
)

// Stamp is metadata attached to an envelope. Stamps are grouped by their
// concrete type.
type Stamp any

// Envelope wraps a message with its stamps. Envelopes are immutable; With
// returns a copy.
type Envelope struct {
	message any
	stamps  map[string][]Stamp
	order   []string
}

// Wrap returns msg in an envelope with stamps added. When msg already is an
// envelope the stamps are added to a copy of it.
func Wrap(msg any, stamps ...Stamp) *Envelope {
	if env, ok := msg.(*Envelope); ok {
		return env.With(stamps...)
	}
	env := &Envelope{message: msg, stamps: make(map[string][]Stamp)}
	return env.With(stamps...)
}

// With returns a copy of e with stamps appended.
func (e *Envelope) With(stamps ...Stamp) *Envelope {
	c := &Envelope{
		message: e.message,
		stamps:  make(map[string][]Stamp, len(e.stamps)+len(stamps)),
		order:   append([]string(nil), e.order...),
	}
	for k, v := range e.stamps {
		c.stamps[k] = append([]Stamp(nil), v...)
	}
	for _, s := range stamps {
		if s == nil {
			continue
		}
		k := stampKey(s)
		if _, ok := c.stamps[k]; !ok {
			c.order = append(c.order, k)
		}
		c.stamps[k] = append(c.stamps[k], s)
	}
	return c
}

// WithoutAll returns a copy of e without stamps of the same type as sample.
func (e *Envelope) WithoutAll(sample Stamp) *Envelope {
	k := stampKey(sample)
	c := e.With()
	if _, ok := c.stamps[k]; !ok {
		return c
	}
	delete(c.stamps, k)
	for i, o := range c.order {
		if o == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return c
}

// Message returns the wrapped message.
func (e *Envelope) Message() any {
	return e.message
}

// MessageType returns the type name of the wrapped message, e.g.
// "orders.PlaceOrder".
func (e *Envelope) MessageType() string {
	return TypeName(e.message)
}

// Stamps returns all stamps in insertion order of their types.
func (e *Envelope) Stamps() []Stamp {
	var out []Stamp
	for _, k := range e.order {
		out = append(out, e.stamps[k]...)
	}
	return out
}

// Last returns the most recently added stamp of type T.
func Last[T Stamp](e *Envelope) (T, bool) {
	var zero T
	s := e.stamps[stampKey(zero)]
	if len(s) == 0 {
		return zero, false
	}
	v, ok := s[len(s)-1].(T)
	return v, ok
}

// All returns every stamp of type T in the order they were added.
func All[T Stamp](e *Envelope) []T {
	var zero T
	var out []T
	for _, s := range e.stamps[stampKey(zero)] {
		if v, ok := s.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Has reports whether e carries a stamp of type T.
func Has[T Stamp](e *Envelope) bool {
	_, ok := Last[T](e)
	return ok
}

func stampKey(s Stamp) string {
	return fmt.Sprintf("%T", s)
}

// TypeName returns the name used to route and serialize v: the package
// qualified type name with pointers stripped.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}
