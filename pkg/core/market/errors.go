package market

import "errors"

var (
	// ErrNotFound is returned when the ticker or a required field is unknown
	// to the data source.
	ErrNotFound = errors.New("market data not found")

	// ErrUpstream wraps non-success responses from the data source.
	ErrUpstream = errors.New("market data source error")
)
