package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/thumbnail-service/internal/api/storage"
)

func DecodeEventCursor(cursorStr string) (*storage.EventCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	decodedParts := strings.Split(string(decoded), "|")
	if len(decodedParts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var recordedAt int64
	if _, err := fmt.Sscanf(decodedParts[0], "%d", &recordedAt); err != nil {
		return nil, fmt.Errorf("invalid recordedAt in cursor: %w", err)
	}

	var id int64
	if _, err := fmt.Sscanf(decodedParts[1], "%d", &id); err != nil {
		return nil, fmt.Errorf("invalid id in cursor: %w", err)
	}

	return &storage.EventCursor{
		RecordedAt: time.Unix(0, recordedAt).UTC(),
		ID:         id,
	}, nil
}

func EncodeEventCursor(cursor *storage.EventCursor) string {
	cs := fmt.Sprintf("%d|%d", cursor.RecordedAt.UnixNano(), cursor.ID)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}
