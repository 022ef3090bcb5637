package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/thumbnail-service/internal/api/domain"
	"github.com/cuongbtq/thumbnail-service/internal/api/dto"
	"github.com/cuongbtq/thumbnail-service/internal/api/storage"
	"github.com/cuongbtq/thumbnail-service/shared/jobstate"
)

// multipartOverhead is the body allowance on top of the file size limit
const multipartOverhead = 1 << 20

// UploadImage handles POST /api/v1/images
// Stores the uploaded image, creates its job and queues it for the worker
func (h *ImageHandler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, http.StatusRequestEntityTooLarge, domain.ErrMsgFileTooLarge)
			return
		}
		h.logger.Warn("No image in upload", slog.Any("error", err))
		abortWithError(c, http.StatusBadRequest, domain.ErrMsgNoFile)
		return
	}

	if fileHeader.Size > h.maxUploadBytes {
		abortWithError(c, http.StatusRequestEntityTooLarge, domain.ErrMsgFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", slog.Any("error", err))
		abortWithError(c, http.StatusInternalServerError, domain.ErrMsgFileUpload)
		return
	}
	mtype, err := mimetype.DetectReader(file)
	file.Close()
	if err != nil {
		h.logger.Error("Failed to detect upload type", slog.Any("error", err))
		abortWithError(c, http.StatusInternalServerError, domain.ErrMsgFileUpload)
		return
	}

	if !strings.HasPrefix(mtype.String(), "image/") {
		h.logger.Warn("Rejected non-image upload",
			slog.String("filename", fileHeader.Filename),
			slog.String("mime_type", mtype.String()),
		)
		abortWithError(c, http.StatusUnsupportedMediaType, domain.ErrMsgNotAnImage)
		return
	}

	// 1. Put the image into file storage
	if err := os.MkdirAll(h.uploadPath, 0o755); err != nil {
		h.logger.Error("Failed to create upload directory", slog.Any("error", err))
		abortWithError(c, http.StatusInternalServerError, domain.ErrMsgFileUpload)
		return
	}

	sourcePath := filepath.Join(h.uploadPath, fmt.Sprintf("%d_%s", time.Now().UnixMilli(), filepath.Base(fileHeader.Filename)))
	if err := c.SaveUploadedFile(fileHeader, sourcePath); err != nil {
		h.logger.Error("Failed to save uploaded file",
			slog.String("path", sourcePath),
			slog.Any("error", err),
		)
		abortWithError(c, http.StatusInternalServerError, domain.ErrMsgFileUpload)
		return
	}

	// 2. Create the job hash
	imageID, err := h.jobs.CreateJob(c.Request.Context(), sourcePath)
	if err != nil {
		h.logger.Error("Failed to save image info", slog.Any("error", err))
		abortWithError(c, http.StatusInternalServerError, domain.ErrMsgSaveImageInfo)
		return
	}

	// 3. Send the job to the queue
	if err := h.publisher.PublishWithRetry(c.Request.Context(), []byte(imageID), "text/plain"); err != nil {
		h.logger.Error("Failed to publish job",
			slog.String("image_id", imageID),
			slog.Any("error", err),
		)
		abortWithError(c, http.StatusInternalServerError, domain.ErrMsgPutJobQueue)
		return
	}

	h.logger.Info("Image accepted",
		slog.String("image_id", imageID),
		slog.String("source_path", sourcePath),
		slog.String("mime_type", mtype.String()),
		slog.Int64("size", fileHeader.Size),
	)

	c.JSON(http.StatusOK, dto.UploadImageResponse{
		Msg:     domain.MsgImageAccepted,
		ImageID: imageID,
	})
}

// GetImage handles GET /api/v1/images/:image_id
// Returns the processing status of an image
func (h *ImageHandler) GetImage(c *gin.Context) {
	image, ok := h.lookupImage(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, statusResponse(image))
}

// GetThumbnail handles GET /api/v1/images/:image_id/thumbnail
// Serves the thumbnail once the job is complete
func (h *ImageHandler) GetThumbnail(c *gin.Context) {
	image, ok := h.lookupImage(c)
	if !ok {
		return
	}

	switch image.Status {
	case jobstate.Complete:
		if image.ThumbnailPath == "" {
			abortWithError(c, http.StatusNotFound, domain.ErrMsgThumbnailMissing)
			return
		}
		c.File(image.ThumbnailPath)
	case jobstate.ErrorDuringProcessing:
		c.JSON(http.StatusUnprocessableEntity, statusResponse(image))
	default:
		c.JSON(http.StatusAccepted, statusResponse(image))
	}
}

// GetHistory handles GET /api/v1/images/:image_id/history
// Lists the recorded status transitions of an image, oldest first
func (h *ImageHandler) GetHistory(c *gin.Context) {
	if h.history == nil {
		abortWithError(c, http.StatusNotFound, domain.ErrMsgHistoryDisabled)
		return
	}

	var req dto.ListHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		abortWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeEventCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		abortWithError(c, http.StatusBadRequest, domain.ErrMsgInvalidCursor)
		return
	}

	image, ok := h.lookupImage(c)
	if !ok {
		return
	}

	events, err := h.history.ListEvents(c.Request.Context(), storage.EventFilter{
		JobID:    image.ID,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list job events", slog.String("error", err.Error()))
		abortWithError(c, http.StatusInternalServerError, domain.ErrMsgGetHistory)
		return
	}

	hasMore := len(events) > req.PageSize
	if hasMore {
		events = events[:req.PageSize]
	}

	eventResponse := make([]dto.JobEventDTO, len(events))
	for i, event := range events {
		eventResponse[i] = dto.JobEventDTO{
			From:          jobstate.Status(event.FromStatus).String(),
			To:            jobstate.Status(event.ToStatus).String(),
			ThumbnailPath: event.ThumbnailPath,
			WorkerID:      event.WorkerID,
			RecordedAt:    event.RecordedAt.Format(time.RFC3339Nano),
		}
	}

	var nextCursor string
	if hasMore {
		last := events[len(events)-1]
		nextCursor = EncodeEventCursor(&storage.EventCursor{
			RecordedAt: last.RecordedAt,
			ID:         last.ID,
		})
	}

	c.JSON(http.StatusOK, dto.ListHistoryResponse{
		Events:     eventResponse,
		NextCursor: nextCursor,
	})
}

func (h *ImageHandler) lookupImage(c *gin.Context) (*domain.Image, bool) {
	imageID := c.Param("image_id")

	image, err := h.jobs.GetImage(c.Request.Context(), imageID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			abortWithError(c, http.StatusNotFound, domain.ErrMsgImageNotFound)
			return nil, false
		}
		h.logger.Error("Failed to get image info",
			slog.String("image_id", imageID),
			slog.Any("error", err),
		)
		abortWithError(c, http.StatusInternalServerError, domain.ErrMsgGetImageInfo)
		return nil, false
	}

	return image, true
}

func statusResponse(image *domain.Image) dto.ImageStatusResponse {
	return dto.ImageStatusResponse{
		ImageID:       image.ID,
		Status:        image.Status.String(),
		StatusCode:    int(image.Status),
		ThumbnailPath: image.ThumbnailPath,
		Message:       domain.StatusMessage(image.Status),
	}
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: msg})
}
