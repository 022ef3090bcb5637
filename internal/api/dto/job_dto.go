package dto

type UploadImageResponse struct {
	Msg     string `json:"msg"`
	ImageID string `json:"image_id"`
}

type ImageStatusResponse struct {
	ImageID       string `json:"image_id"`
	Status        string `json:"status"`
	StatusCode    int    `json:"status_code"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	Message       string `json:"message,omitempty"`
}

type ListHistoryRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListHistoryResponse struct {
	Events     []JobEventDTO `json:"events"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type JobEventDTO struct {
	From          string `json:"from"`
	To            string `json:"to"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	WorkerID      string `json:"worker_id"`
	RecordedAt    string `json:"recorded_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
