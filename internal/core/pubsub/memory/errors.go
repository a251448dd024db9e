// Package memory provides an in-process broker used when no NATS server is configured.
package memory

import "errors"

var (
	// ErrBrokerClosed is returned when operating on a closed broker.
	ErrBrokerClosed = errors.New("broker is closed")

	// ErrPatternSubscribed is returned when a pattern already has a subscriber.
	ErrPatternSubscribed = errors.New("pattern already has a subscriber")
)
