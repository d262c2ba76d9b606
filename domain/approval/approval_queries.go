package approval

import (
	"campflow/account"
	"campflow/domain"
	"campflow/persistence"
	"campflow/session"

	"github.com/fundwit/go-commons/types"
)

var (
	QueryPendingApprovalsFunc  = QueryPendingApprovals
	QuerySubmittedRequestsFunc = QuerySubmittedRequests
	QueryApprovalHistoryFunc   = QueryApprovalHistory
	DetailApprovalRequestFunc  = DetailApprovalRequest
	LoadRequestsFunc           = LoadRequests
)

type ApprovalActionDetail struct {
	domain.ApprovalAction

	ActorName string `json:"actorName"`
}

// QueryPendingApprovals returns pending requests whose current step is gated
// to a role the session holds. Role is the only discriminator: actors sharing
// a role see an identical queue.
func QueryPendingApprovals(s *session.Session) ([]ApprovalRequestDetail, error) {
	if len(s.Perms) == 0 {
		return []ApprovalRequestDetail{}, nil
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var requests []domain.ApprovalRequest
	if err := db.Model(&domain.ApprovalRequest{}).
		Joins("INNER JOIN workflow_steps ON workflow_steps.id = approval_requests.current_step_id").
		Where("approval_requests.status = ?", domain.RequestStatusPending).
		Where("workflow_steps.required_role IN (?)", []string(s.Perms)).
		Order("approval_requests.submit_time DESC").
		Scan(&requests).Error; err != nil {
		return nil, err
	}

	return extendRequests(requests, s)
}

func QuerySubmittedRequests(s *session.Session) ([]ApprovalRequestDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var requests []domain.ApprovalRequest
	if err := db.Where(&domain.ApprovalRequest{SubmittedBy: s.Identity.ID}).
		Order("submit_time DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return extendRequests(requests, s)
}

func DetailApprovalRequest(id types.ID, s *session.Session) (*ApprovalRequestDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	request := domain.ApprovalRequest{}
	if err := db.Where(&domain.ApprovalRequest{ID: id}).First(&request).Error; err != nil {
		return nil, err
	}
	details, err := extendRequests([]domain.ApprovalRequest{request}, s)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// QueryApprovalHistory returns all actions of a request in call order,
// with actor display names joined in.
func QueryApprovalHistory(requestId types.ID, s *session.Session) ([]ApprovalActionDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	request := domain.ApprovalRequest{}
	if err := db.Where(&domain.ApprovalRequest{ID: requestId}).First(&request).Error; err != nil {
		return nil, err
	}

	var actions []domain.ApprovalAction
	if err := db.Where(domain.ApprovalAction{RequestID: requestId}).
		Order("create_time ASC, id ASC").Find(&actions).Error; err != nil {
		return nil, err
	}

	actorIds := make([]types.ID, 0, len(actions))
	for _, a := range actions {
		actorIds = append(actorIds, a.ActorID)
	}
	names, err := account.QueryAccountNamesFunc(actorIds, db)
	if err != nil {
		return nil, err
	}

	details := make([]ApprovalActionDetail, 0, len(actions))
	for _, a := range actions {
		details = append(details, ApprovalActionDetail{ApprovalAction: a, ActorName: names[a.ActorID]})
	}
	return details, nil
}

// LoadRequests pages over all requests regardless of status. page starts from 1.
func LoadRequests(page, pageSize int, s *session.Session) ([]ApprovalRequestDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var requests []domain.ApprovalRequest
	if err := db.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return extendRequests(requests, s)
}

// extendRequests appends the current step of each request.
func extendRequests(requests []domain.ApprovalRequest, s *session.Session) ([]ApprovalRequestDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	stepCache := map[types.ID]*domain.WorkflowStep{}

	details := make([]ApprovalRequestDetail, 0, len(requests))
	for _, r := range requests {
		detail := ApprovalRequestDetail{ApprovalRequest: r}
		if !r.CurrentStepID.IsZero() {
			step := stepCache[r.CurrentStepID]
			if step == nil {
				step = &domain.WorkflowStep{}
				if err := db.Where(&domain.WorkflowStep{ID: r.CurrentStepID}).First(step).Error; err != nil {
					return nil, err
				}
				stepCache[r.CurrentStepID] = step
			}
			detail.CurrentStep = step
		}
		details = append(details, detail)
	}
	return details, nil
}
