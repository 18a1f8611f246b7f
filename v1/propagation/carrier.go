package propagation

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/propagation"
)

// ErrCarrierType is the panic value of a view handed a carrier it does not
// support.
var ErrCarrierType = errors.New("unsupported carrier type")

// Getter reads propagation fields from a carrier.
type Getter interface {
	// Keys lists the field names present on carrier.
	Keys(carrier any) []string

	// Get returns the value of key, or "" when absent.
	Get(carrier any, key string) string
}

// Setter writes propagation fields to a carrier.
type Setter interface {
	Keys(carrier any) []string
	Set(carrier any, key, value string)
}

// Extractor binds g to carrier for propagator.Extract.
func Extractor(g Getter, carrier any) propagation.TextMapCarrier {
	return extractor{getter: g, carrier: carrier}
}

// Injector binds s to carrier for propagator.Inject.
func Injector(s Setter, carrier any) propagation.TextMapCarrier {
	return injector{setter: s, carrier: carrier}
}

type extractor struct {
	getter  Getter
	carrier any
}

func (e extractor) Get(key string) string {
	return e.getter.Get(e.carrier, key)
}

func (e extractor) Set(string, string) {}

func (e extractor) Keys() []string {
	return e.getter.Keys(e.carrier)
}

type injector struct {
	setter  Setter
	carrier any
}

func (i injector) Get(string) string {
	return ""
}

func (i injector) Set(key, value string) {
	i.setter.Set(i.carrier, key, value)
}

func (i injector) Keys() []string {
	return i.setter.Keys(i.carrier)
}

func wrongCarrier(carrier any, want string) error {
	return fmt.Errorf("%w: got %T, want %s", ErrCarrierType, carrier, want)
}
