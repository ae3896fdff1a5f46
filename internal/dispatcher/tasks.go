package dispatcher

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TaskReminderScan triggers one dispatcher run over due case actions.
const TaskReminderScan = "cases.actions.reminder_scan"

// ReminderScanPayload carries the scan trigger time for observability.
type ReminderScanPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewReminderScanTask(payload ReminderScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReminderScan, data), nil
}

func ParseReminderScanPayload(task *asynq.Task) (ReminderScanPayload, error) {
	var payload ReminderScanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReminderScanPayload{}, err
	}
	return payload, nil
}
