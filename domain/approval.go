package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
	// RequestStatusCancelled is a declared terminal status,
	// no engine operation currently produces it.
	RequestStatusCancelled RequestStatus = "cancelled"
)

type RequestPriority string

const (
	PriorityLow    RequestPriority = "low"
	PriorityMedium RequestPriority = "medium"
	PriorityHigh   RequestPriority = "high"
	PriorityUrgent RequestPriority = "urgent"
)

type ActionType string

const (
	ActionApproved         ActionType = "approved"
	ActionRejected         ActionType = "rejected"
	ActionRequestedChanges ActionType = "requested_changes"
	ActionCommented        ActionType = "commented"
)

// Metadata is an opaque caller-defined payload persisted as JSON text.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	jsonBytes, err := json.Marshal(&m)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (m *Metadata) Scan(v interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonBytes, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonBytes)
	}
	if jsonString == "" {
		return nil
	}
	return json.Unmarshal([]byte(jsonString), m)
}

// ApprovalRequest tracks a single resource's journey through a workflow instance.
// It is the permanent audit record, never deleted by the engine.
type ApprovalRequest struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	WorkflowID types.ID `json:"workflowId" sql:"type:BIGINT UNSIGNED NOT NULL"`

	ResourceType string   `json:"resourceType"`
	ResourceID   types.ID `json:"resourceId" sql:"type:BIGINT UNSIGNED NOT NULL"`

	// CurrentStepID is zero when no step is active (terminal states).
	CurrentStepID types.ID      `json:"currentStepId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Status        RequestStatus `json:"status" gorm:"index:idx_status"`

	SubmittedBy  types.ID        `json:"submittedBy" gorm:"index:idx_submitter" sql:"type:BIGINT UNSIGNED NOT NULL"`
	SubmitTime   types.Timestamp `json:"submitTime" sql:"type:DATETIME(6) NOT NULL"`
	CompleteTime types.Timestamp `json:"completeTime" sql:"type:DATETIME(6)"`

	Priority        RequestPriority `json:"priority"`
	Metadata        Metadata        `json:"metadata" sql:"type:TEXT"`
	RejectionReason string          `json:"rejectionReason"`

	// Version guards transitions with conditional updates, bumped on every mutation.
	Version int `json:"version"`
}

func (r *ApprovalRequest) TableName() string {
	return "approval_requests"
}

// ApprovalAction is an immutable log entry recording one actor decision against a request.
type ApprovalAction struct {
	ID        types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	RequestID types.ID `json:"requestId" gorm:"index:idx_request" sql:"type:BIGINT UNSIGNED NOT NULL"`
	// StepID is the step active at the time of the action.
	StepID types.ID `json:"stepId" sql:"type:BIGINT UNSIGNED NOT NULL"`

	ActorID types.ID   `json:"actorId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Action  ActionType `json:"action"`
	Comment string     `json:"comment" sql:"type:TEXT"`
	// Changes carries the opaque payload of a requested_changes action.
	Changes string `json:"changes" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (a *ApprovalAction) TableName() string {
	return "approval_actions"
}
