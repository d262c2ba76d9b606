package flow

import (
	"campflow/account"
	"campflow/bizerror"
	"campflow/domain"
	"campflow/idgen"
	"campflow/persistence"
	"campflow/session"
	"errors"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	idWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryWorkflowsFunc     = QueryWorkflows
	DetailWorkflowFunc     = DetailWorkflow
	CreateWorkflowFunc     = CreateWorkflow
	DeleteWorkflowFunc     = DeleteWorkflow
	UpdateWorkflowBaseFunc = UpdateWorkflowBase
)

type WorkflowCreation struct {
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	ResourceType string `json:"resourceType" validate:"required"`
	IsActive     bool   `json:"isActive"`
	IsSequential bool   `json:"isSequential"`

	Steps []StepCreation `json:"steps" validate:"required,min=1,dive"`
}

type StepCreation struct {
	Name               string `json:"name" validate:"required"`
	Description        string `json:"description"`
	RequiredRole       string `json:"requiredRole" validate:"required"`
	RequiredPermission string `json:"requiredPermission"`

	AllowMultipleApprovers bool `json:"allowMultipleApprovers"`
	RequiredApproverCount  int  `json:"requiredApproverCount" validate:"omitempty,min=1"`
	CanReject              bool `json:"canReject"`
}

type WorkflowBaseUpdation struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	IsActive    bool   `json:"isActive"`
}

func CreateWorkflow(c *WorkflowCreation, s *session.Session) (*domain.WorkflowDetail, error) {
	if !s.Perms.HasRole(account.SystemAdminRole) {
		return nil, bizerror.ErrForbidden
	}
	if len(c.Steps) == 0 {
		return nil, bizerror.ErrNoStepsConfigured
	}

	now := types.CurrentTimestamp()
	detail := &domain.WorkflowDetail{
		Workflow: domain.Workflow{
			ID:           idgen.NextID(idWorker),
			Name:         c.Name,
			Description:  c.Description,
			ResourceType: c.ResourceType,
			IsActive:     c.IsActive,
			IsSequential: c.IsSequential,
			CreateTime:   now,
		},
	}
	for idx, sc := range c.Steps {
		detail.Steps = append(detail.Steps, domain.WorkflowStep{
			ID:         idgen.NextID(idWorker),
			WorkflowID: detail.ID,
			StepOrder:  10000 + idx + 1,

			Name:               sc.Name,
			Description:        sc.Description,
			RequiredRole:       sc.RequiredRole,
			RequiredPermission: sc.RequiredPermission,

			AllowMultipleApprovers: sc.AllowMultipleApprovers,
			RequiredApproverCount:  sc.RequiredApproverCount,
			CanReject:              sc.CanReject,

			CreateTime: now,
		})
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&detail.Workflow).Error; err != nil {
			return err
		}
		for idx := range detail.Steps {
			if err := tx.Create(&detail.Steps[idx]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return detail, nil
}

func DetailWorkflow(id types.ID, s *session.Session) (*domain.WorkflowDetail, error) {
	detail := domain.WorkflowDetail{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Workflow{ID: id}).First(&detail.Workflow).Error; err != nil {
			return err
		}
		return tx.Where(domain.WorkflowStep{WorkflowID: detail.ID}).
			Order("step_order ASC").Find(&detail.Steps).Error
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func QueryWorkflows(query *domain.WorkflowQuery, s *session.Session) (*[]domain.Workflow, error) {
	var workflows []domain.Workflow
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	q := db.Model(&domain.Workflow{})
	if query.Name != "" {
		q = q.Where("name like ?", "%"+query.Name+"%")
	}
	if query.ResourceType != "" {
		q = q.Where(&domain.Workflow{ResourceType: query.ResourceType})
	}
	if query.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Find(&workflows).Error; err != nil {
		return nil, err
	}

	return &workflows, nil
}

func UpdateWorkflowBase(id types.ID, c *WorkflowBaseUpdation, s *session.Session) (*domain.Workflow, error) {
	if !s.Perms.HasRole(account.SystemAdminRole) {
		return nil, bizerror.ErrForbidden
	}

	wf := domain.Workflow{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Workflow{ID: id}).First(&wf).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"name": c.Name, "description": c.Description, "is_active": c.IsActive,
		}
		if err := tx.Model(&domain.Workflow{}).Where(&domain.Workflow{ID: id}).
			Update(updates).Error; err != nil {
			return err
		}
		// query again
		return tx.Where(&domain.Workflow{ID: id}).First(&wf).Error
	})
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

func DeleteWorkflow(id types.ID, s *session.Session) error {
	if !s.Perms.HasRole(account.SystemAdminRole) {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		wf := domain.Workflow{}
		if err := tx.Where(&domain.Workflow{ID: id}).First(&wf).Error; err != nil {
			return err
		}

		if err := isWorkflowReferenced(tx, wf.ID); err != nil {
			return err
		}

		if err := tx.Model(&domain.Workflow{}).Delete(&domain.Workflow{ID: id}).Error; err != nil {
			return err
		}
		return tx.Model(&domain.WorkflowStep{}).Where("workflow_id = ?", wf.ID).
			Delete(&domain.WorkflowStep{}).Error
	})
}

func isWorkflowReferenced(db *gorm.DB, workflowID types.ID) error {
	var request domain.ApprovalRequest
	err := db.Model(&domain.ApprovalRequest{}).Where(&domain.ApprovalRequest{WorkflowID: workflowID}).
		First(&request).Error
	if err == nil {
		return bizerror.ErrWorkflowIsReferenced
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}
