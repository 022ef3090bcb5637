package domain

import "github.com/cuongbtq/thumbnail-service/shared/jobstate"

// Job is the worker's view of a job hash
type Job struct {
	JobID         string
	Status        jobstate.Status
	SourcePath    string
	ThumbnailPath string // read for completeness; the processor does not use it
}
