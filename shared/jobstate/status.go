// Package jobstate holds the job status encoding and the hash layout shared by
// the API producer and the thumbnail worker.
package jobstate

import (
	"errors"
	"fmt"
	"strconv"
)

// Hash fields stored under each job id key
const (
	FieldStatus        = "status"
	FieldSourcePath    = "sourcePath"
	FieldThumbnailPath = "thumbnailPath"
)

// Status is the lifecycle state of a thumbnail job. The integer values are the
// storage encoding and must not change.
type Status int

const (
	ErrorDuringProcessing Status = -1
	ReadyForProcessing    Status = 0
	Processing            Status = 1
	Complete              Status = 2
)

var (
	// ErrMalformedStatus is returned when a stored status is not an integer
	ErrMalformedStatus = errors.New("malformed job status")

	// ErrUnknownStatus is returned when a stored status integer has no matching state
	ErrUnknownStatus = errors.New("unknown job status")
)

var statusNames = map[Status]string{
	ErrorDuringProcessing: "ERROR_DURING_PROCESSING",
	ReadyForProcessing:    "READY_FOR_PROCESSING",
	Processing:            "PROCESSING",
	Complete:              "COMPLETE",
}

// ParseStatus decodes the stored representation of a status.
func ParseStatus(raw string) (Status, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedStatus, raw)
	}

	s := Status(n)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownStatus, n)
	}

	return s, nil
}

// Encode returns the stored representation of the status.
func (s Status) Encode() string {
	return strconv.Itoa(int(s))
}

// Valid reports whether s is one of the defined states.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal reports whether the worker issues no further transition after s.
func (s Status) IsTerminal() bool {
	return s == Complete || s == ErrorDuringProcessing
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}
