package scheduler

import (
	"encoding/json"

	"salesops_backend/internal/email"

	"github.com/hibiken/asynq"
)

const TaskEmailDeliver = "notification.email.deliver"

const TaskReconcileReplacements = "orders.replacements.reconcile"

type EmailDeliverPayload struct {
	Message email.Message `json:"message"`
}

func NewEmailDeliverTask(payload EmailDeliverPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEmailDeliver, data), nil
}

func ParseEmailDeliverPayload(task *asynq.Task) (EmailDeliverPayload, error) {
	var payload EmailDeliverPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return EmailDeliverPayload{}, err
	}
	return payload, nil
}

// NewReconcileReplacementsTask builds the sweep task. It carries no payload.
func NewReconcileReplacementsTask() *asynq.Task {
	return asynq.NewTask(TaskReconcileReplacements, nil)
}
