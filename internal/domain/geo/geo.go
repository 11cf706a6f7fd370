// Package geo declares the geocoding collaborator consumed during order
// placement. The marketplace does not implement geocoding itself.
package geo

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnavailable is returned when no geocoding backend is configured.
var ErrUnavailable = errors.New("geocoding unavailable")

// Resolver turns a postal address into geocoordinates.
type Resolver interface {
	Resolve(ctx context.Context, street, city, country string) (lat, lon float64, err error)
}

// Nop is a Resolver that resolves nothing. Used when no geocoding backend is
// configured.
type Nop struct{}

func (Nop) Resolve(context.Context, string, string, string) (float64, float64, error) {
	return 0, 0, ErrUnavailable
}
