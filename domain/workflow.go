package domain

import (
	"github.com/fundwit/go-commons/types"
)

// Workflow is a named, ordered template of approval steps applicable to one resource type.
type Workflow struct {
	ID   types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Name string   `json:"name"`

	Description  string `json:"description"`
	ResourceType string `json:"resourceType"`
	IsActive     bool   `json:"isActive"`
	// IsSequential is reserved, the engine always proceeds sequentially.
	IsSequential bool `json:"isSequential"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

// WorkflowStep is one stage in a workflow, gated to actors of one role.
// StepOrder values are distinct within a workflow and define the total order.
type WorkflowStep struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	WorkflowID types.ID `json:"workflowId" gorm:"index:idx_workflow_order" sql:"type:BIGINT UNSIGNED NOT NULL"`
	StepOrder  int      `json:"stepOrder" gorm:"index:idx_workflow_order"`

	Name         string `json:"name"`
	Description  string `json:"description"`
	RequiredRole string `json:"requiredRole"`
	// RequiredPermission is advisory only, the engine does not evaluate it.
	RequiredPermission string `json:"requiredPermission"`

	AllowMultipleApprovers bool `json:"allowMultipleApprovers"`
	RequiredApproverCount  int  `json:"requiredApproverCount"`
	// CanReject is reserved, the engine permits rejection at every step.
	CanReject bool `json:"canReject"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type WorkflowDetail struct {
	Workflow

	// Steps are ordered by StepOrder ascending.
	Steps []WorkflowStep `json:"steps"`
}

type WorkflowQuery struct {
	Name         string `form:"name"`
	ResourceType string `form:"resourceType"`
	ActiveOnly   bool   `form:"activeOnly"`
}
