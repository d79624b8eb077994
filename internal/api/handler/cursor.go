package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/quizforge/internal/storage"
)

// DecodeQuizCursor parses an opaque page cursor; empty means the first page
func DecodeQuizCursor(cursorStr string) (*storage.QuizCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var createdAt int64
	if _, err := fmt.Sscanf(parts[0], "%d", &createdAt); err != nil {
		return nil, fmt.Errorf("invalid createdAt in cursor: %w", err)
	}

	return &storage.QuizCursor{
		CreatedAt: time.Unix(0, createdAt).UTC(),
		QuizID:    parts[1],
	}, nil
}

// EncodeQuizCursor renders the position after the given quiz
func EncodeQuizCursor(cursor *storage.QuizCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.QuizID)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}
