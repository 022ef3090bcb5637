package domain

import (
	"errors"

	"github.com/cuongbtq/thumbnail-service/shared/jobstate"
)

// Response messages
const (
	MsgImageAccepted = "Successfully processed image file."

	ErrMsgNoFile           = "No files were uploaded."
	ErrMsgFileTooLarge     = "Uploaded file is too large."
	ErrMsgNotAnImage       = "Uploaded file is not an image."
	ErrMsgFileUpload       = "File upload failed."
	ErrMsgSaveImageInfo    = "Saving image info failed."
	ErrMsgGetImageInfo     = "Getting image info failed."
	ErrMsgPutJobQueue      = "Sending job failed."
	ErrMsgImageNotFound    = "Requested imageId does not exist."
	ErrMsgHistoryDisabled  = "Job history is not enabled."
	ErrMsgGetHistory       = "Getting job history failed."
	ErrMsgInvalidCursor    = "Invalid cursor."
	ErrMsgThumbnailMissing = "Thumbnail file path does not exist."
	ErrMsgRateLimited      = "Too many uploads, try again later."
)

var (
	ErrJobNotFound = errors.New("job not found")
)

// Image is the API view of a job hash
type Image struct {
	ID            string
	Status        jobstate.Status
	SourcePath    string
	ThumbnailPath string
}

// StatusMessage describes a job that has no thumbnail to serve
func StatusMessage(status jobstate.Status) string {
	switch status {
	case jobstate.ReadyForProcessing:
		return "Job for this imageId is waiting to be processed."
	case jobstate.Processing:
		return "Job for this imageId is still being processed."
	case jobstate.ErrorDuringProcessing:
		return "An error occurred during processing of this imageId."
	default:
		return ""
	}
}
