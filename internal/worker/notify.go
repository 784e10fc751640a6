package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"resumeStudio/internal/tasks"
)

// 导出通知状态。
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// ExportNotifyMessage 是通过 Redis Pub/Sub 转发给编辑会话的导出结果。
type ExportNotifyMessage struct {
	Status        string `json:"status"`
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
	Retryable     bool   `json:"retryable"`
	PDFKey        string `json:"pdf_key,omitempty"`
	PreviewKey    string `json:"preview_key,omitempty"`
}

// Publisher 是 *redis.Client 的发布能力子集。
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

func publishNotify(ctx context.Context, pub Publisher, msg ExportNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := tasks.NotifyChannel(msg.ResumeID)
	if err := pub.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
