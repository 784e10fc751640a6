package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeExportPDF = "export:pdf"
)

// ExportPayload 描述一次异步导出所需的最小信息。
type ExportPayload struct {
	ResumeID      uint   `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewExportTask 构造一个新的简历导出任务。
func NewExportTask(id uint, correlationID string, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(ExportPayload{
		ResumeID:      id,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExportPDF, payload, opts...), nil
}

// NotifyChannel 返回某份简历导出通知使用的 Redis 频道。
func NotifyChannel(resumeID uint) string {
	return fmt.Sprintf("resume_notify:%d", resumeID)
}
