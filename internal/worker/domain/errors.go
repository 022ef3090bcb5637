package domain

import "errors"

var (
	// ErrJobNotFound is returned when no hash exists for a job id
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidMessage is returned when a message body is not a usable job id
	ErrInvalidMessage = errors.New("invalid job message")

	// ErrDeliveriesClosed is returned when the broker stops delivering to the consumer
	ErrDeliveriesClosed = errors.New("delivery channel closed")

	// ErrQueueConnectionLost is returned when the broker closes the channel with an error
	ErrQueueConnectionLost = errors.New("queue connection lost")
)
