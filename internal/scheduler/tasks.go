package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRescoreTenant = "leads.rescore_tenant"

const TaskDailyDigest = "leads.daily_digest"

type RescoreTenantPayload struct {
	TenantID string `json:"tenantId"`
}

// DailyDigestPayload limits the digest to one tenant when TenantID is set.
type DailyDigestPayload struct {
	TenantID string `json:"tenantId,omitempty"`
}

func NewRescoreTenantTask(payload RescoreTenantPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRescoreTenant, data), nil
}

func ParseRescoreTenantPayload(task *asynq.Task) (RescoreTenantPayload, error) {
	var payload RescoreTenantPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RescoreTenantPayload{}, err
	}
	return payload, nil
}

func NewDailyDigestTask(payload DailyDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailyDigest, data), nil
}

func ParseDailyDigestPayload(task *asynq.Task) (DailyDigestPayload, error) {
	var payload DailyDigestPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DailyDigestPayload{}, err
	}
	return payload, nil
}
