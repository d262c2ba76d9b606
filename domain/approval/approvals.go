package approval

import (
	"campflow/account"
	"campflow/bizerror"
	"campflow/domain"
	"campflow/idgen"
	"campflow/notification"
	"campflow/persistence"
	"campflow/session"
	"errors"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	requestIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})
	actionIdWorker  = sonyflake.NewSonyflake(sonyflake.Settings{})

	SubmitApprovalRequestFunc = SubmitApprovalRequest
	ApproveRequestFunc        = ApproveRequest
	RejectRequestFunc         = RejectRequest
	RequestChangesFunc        = RequestChanges
	CommentRequestFunc        = CommentRequest
)

type RequestSubmission struct {
	WorkflowID   types.ID `json:"workflowId" validate:"required"`
	ResourceType string   `json:"resourceType" validate:"required"`
	ResourceID   types.ID `json:"resourceId" validate:"required"`

	Priority domain.RequestPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Metadata domain.Metadata        `json:"metadata"`
}

type ApprovalDecision struct {
	Comment string `json:"comment"`
}

type ApprovalOutcome struct {
	Completed bool `json:"completed"`
}

type Rejection struct {
	Reason string `json:"reason" validate:"required"`
}

type ChangesRequest struct {
	Changes string `json:"changes" validate:"required"`
	Comment string `json:"comment"`
}

type RequestComment struct {
	Comment string `json:"comment" validate:"required"`
}

type ApprovalRequestDetail struct {
	domain.ApprovalRequest

	CurrentStep *domain.WorkflowStep `json:"currentStep,omitempty"`
}

// SubmitApprovalRequest creates a pending request at the workflow's first step
// and fans approval_needed notifications out to the step's role holders.
// The resource under review is not touched, the engine is a tracking layer only.
func SubmitApprovalRequest(c *RequestSubmission, s *session.Session) (*ApprovalRequestDetail, error) {
	var detail *ApprovalRequestDetail
	var records []notification.Record

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		workflow := domain.Workflow{}
		if err := tx.Where(&domain.Workflow{ID: c.WorkflowID}).First(&workflow).Error; err != nil {
			return err
		}
		if !workflow.IsActive {
			return bizerror.ErrWorkflowInactive
		}

		firstStep := domain.WorkflowStep{}
		if err := tx.Where(domain.WorkflowStep{WorkflowID: workflow.ID}).
			Order("step_order ASC").First(&firstStep).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerror.ErrNoStepsConfigured
			}
			return err
		}

		priority := c.Priority
		if priority == "" {
			priority = domain.PriorityMedium
		}
		request := domain.ApprovalRequest{
			ID:         idgen.NextID(requestIdWorker),
			WorkflowID: workflow.ID,

			ResourceType: c.ResourceType,
			ResourceID:   c.ResourceID,

			CurrentStepID: firstStep.ID,
			Status:        domain.RequestStatusPending,

			SubmittedBy: s.Identity.ID,
			SubmitTime:  types.CurrentTimestamp(),

			Priority: priority,
			Metadata: c.Metadata,

			Version: 1,
		}
		if err := tx.Create(&request).Error; err != nil {
			return err
		}

		var err error
		records, err = notifyRoleHolders(tx, request.ID, firstStep.RequiredRole)
		if err != nil {
			return err
		}

		detail = &ApprovalRequestDetail{ApprovalRequest: request, CurrentStep: &firstStep}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notification.InvokeHandlersFunc != nil {
		notification.InvokeHandlersFunc(records)
	}

	return detail, nil
}

// ApproveRequest records an approval at the request's current step, then either
// advances the request to the next step by order or completes it when the
// current step was the last one.
func ApproveRequest(id types.ID, d *ApprovalDecision, s *session.Session) (*ApprovalOutcome, error) {
	outcome := &ApprovalOutcome{}
	var records []notification.Record

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		request, step, err := findPendingRequestAndStep(tx, id)
		if err != nil {
			return err
		}
		if !s.Perms.HasRole(step.RequiredRole) {
			return bizerror.ErrForbidden
		}

		quorum := step.AllowMultipleApprovers && step.RequiredApproverCount > 1
		if quorum {
			var duplicated int
			if err := tx.Model(&domain.ApprovalAction{}).
				Where(&domain.ApprovalAction{RequestID: request.ID, StepID: step.ID, Action: domain.ActionApproved}).
				Where("actor_id = ?", s.Identity.ID).Count(&duplicated).Error; err != nil {
				return err
			}
			if duplicated > 0 {
				return bizerror.ErrDuplicatedApproval
			}
		}

		if err := appendAction(tx, request, step.ID, s.Identity.ID, domain.ActionApproved, d.Comment, ""); err != nil {
			return err
		}

		if quorum {
			// one action row per distinct approving actor on the step
			var approvals int
			if err := tx.Model(&domain.ApprovalAction{}).
				Where(&domain.ApprovalAction{RequestID: request.ID, StepID: step.ID, Action: domain.ActionApproved}).
				Count(&approvals).Error; err != nil {
				return err
			}
			if approvals < step.RequiredApproverCount {
				// step stays open until the quorum is reached
				return transitRequest(tx, request, map[string]interface{}{})
			}
		}

		nextStep := domain.WorkflowStep{}
		err = tx.Where("workflow_id = ? AND step_order > ?", request.WorkflowID, step.StepOrder).
			Order("step_order ASC").First(&nextStep).Error
		if err == nil {
			if err := transitRequest(tx, request, map[string]interface{}{
				"current_step_id": nextStep.ID,
			}); err != nil {
				return err
			}
			records, err = notifyRoleHolders(tx, request.ID, nextStep.RequiredRole)
			return err
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// current step was the last one
		if err := transitRequest(tx, request, map[string]interface{}{
			"status":          domain.RequestStatusApproved,
			"current_step_id": types.ID(0),
			"complete_time":   types.CurrentTimestamp(),
		}); err != nil {
			return err
		}
		outcome.Completed = true
		records, err = notifySubmitter(tx, request, notification.TypeApproved)
		return err
	})
	if err != nil {
		return nil, err
	}

	if notification.InvokeHandlersFunc != nil {
		notification.InvokeHandlersFunc(records)
	}

	return outcome, nil
}

// RejectRequest terminates a pending request at its current step.
func RejectRequest(id types.ID, r *Rejection, s *session.Session) error {
	var records []notification.Record

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		request, step, err := findPendingRequestAndStep(tx, id)
		if err != nil {
			return err
		}
		if !s.Perms.HasRole(step.RequiredRole) {
			return bizerror.ErrForbidden
		}

		if err := appendAction(tx, request, step.ID, s.Identity.ID, domain.ActionRejected, r.Reason, ""); err != nil {
			return err
		}

		if err := transitRequest(tx, request, map[string]interface{}{
			"status":           domain.RequestStatusRejected,
			"current_step_id":  types.ID(0),
			"rejection_reason": r.Reason,
			"complete_time":    types.CurrentTimestamp(),
		}); err != nil {
			return err
		}

		records, err = notifySubmitter(tx, request, notification.TypeRejected)
		return err
	})
	if err != nil {
		return err
	}

	if notification.InvokeHandlersFunc != nil {
		notification.InvokeHandlersFunc(records)
	}

	return nil
}

// RequestChanges is advisory messaging only: the action is logged and the
// submitter notified, but status and current step are left untouched.
func RequestChanges(id types.ID, c *ChangesRequest, s *session.Session) error {
	var records []notification.Record

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		request, step, err := findPendingRequestAndStep(tx, id)
		if err != nil {
			return err
		}
		if !s.Perms.HasRole(step.RequiredRole) {
			return bizerror.ErrForbidden
		}

		if err := appendAction(tx, request, step.ID, s.Identity.ID, domain.ActionRequestedChanges, c.Comment, c.Changes); err != nil {
			return err
		}

		records, err = notifySubmitter(tx, request, notification.TypeChangesRequested)
		return err
	})
	if err != nil {
		return err
	}

	if notification.InvokeHandlersFunc != nil {
		notification.InvokeHandlersFunc(records)
	}

	return nil
}

// CommentRequest appends a commented action. Permitted to the submitter and
// to holders of the current step's role. No state change, no notification.
func CommentRequest(id types.ID, c *RequestComment, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		request := domain.ApprovalRequest{}
		if err := tx.Where(&domain.ApprovalRequest{ID: id}).First(&request).Error; err != nil {
			return err
		}

		permitted := request.SubmittedBy == s.Identity.ID || s.Perms.HasRole(account.SystemAdminRole)
		if !permitted && !request.CurrentStepID.IsZero() {
			step := domain.WorkflowStep{}
			if err := tx.Where(&domain.WorkflowStep{ID: request.CurrentStepID}).First(&step).Error; err != nil {
				return err
			}
			permitted = s.Perms.HasRole(step.RequiredRole)
		}
		if !permitted {
			return bizerror.ErrForbidden
		}

		return appendAction(tx, &request, request.CurrentStepID, s.Identity.ID, domain.ActionCommented, c.Comment, "")
	})
}

func findPendingRequestAndStep(tx *gorm.DB, id types.ID) (*domain.ApprovalRequest, *domain.WorkflowStep, error) {
	request := domain.ApprovalRequest{}
	if err := tx.Where(&domain.ApprovalRequest{ID: id}).First(&request).Error; err != nil {
		return nil, nil, err
	}
	if request.Status != domain.RequestStatusPending {
		return nil, nil, bizerror.ErrInvalidState
	}
	if request.CurrentStepID.IsZero() {
		return nil, nil, bizerror.ErrNoActiveStep
	}

	step := domain.WorkflowStep{}
	if err := tx.Where(&domain.WorkflowStep{ID: request.CurrentStepID}).First(&step).Error; err != nil {
		return nil, nil, err
	}
	return &request, &step, nil
}

func appendAction(tx *gorm.DB, request *domain.ApprovalRequest, stepId, actorId types.ID,
	action domain.ActionType, comment, changes string) error {
	record := domain.ApprovalAction{
		ID:        idgen.NextID(actionIdWorker),
		RequestID: request.ID,
		StepID:    stepId,

		ActorID: actorId,
		Action:  action,
		Comment: comment,
		Changes: changes,

		CreateTime: types.CurrentTimestamp(),
	}
	return tx.Create(&record).Error
}

// transitRequest applies changes with a conditional update on (id, version,
// pending status), so two concurrent transitions cannot both win.
func transitRequest(tx *gorm.DB, request *domain.ApprovalRequest, changes map[string]interface{}) error {
	changes["version"] = request.Version + 1
	db := tx.Model(&domain.ApprovalRequest{}).
		Where("id = ? AND version = ? AND status = ?", request.ID, request.Version, domain.RequestStatusPending).
		Update(changes)
	if db.Error != nil {
		return db.Error
	}
	if db.RowsAffected != 1 {
		return bizerror.ErrInvalidState
	}
	return nil
}

func notifyRoleHolders(tx *gorm.DB, requestId types.ID, role string) ([]notification.Record, error) {
	users, err := account.UsersWithRoleFunc(role, tx)
	if err != nil {
		return nil, err
	}
	recipients := make([]types.ID, 0, len(users))
	for _, u := range users {
		recipients = append(recipients, u.ID)
	}
	return notification.CreateRecords(requestId, notification.TypeApprovalNeeded, recipients, tx)
}

func notifySubmitter(tx *gorm.DB, request *domain.ApprovalRequest, notificationType notification.Type) ([]notification.Record, error) {
	return notification.CreateRecords(request.ID, notificationType, []types.ID{request.SubmittedBy}, tx)
}
