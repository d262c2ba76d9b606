package search

import (
	"campflow/client/es"
	"campflow/domain"
	"campflow/domain/approval"
	"campflow/indices"
	"campflow/session"
	"encoding/json"
	"fmt"
	"strings"
)

var (
	SearchRequestsFunc = SearchRequests
)

type RequestSearchQuery struct {
	Query        string                 `form:"query"`
	ResourceType string                 `form:"resourceType"`
	Status       domain.RequestStatus   `form:"status"`
	Priority     domain.RequestPriority `form:"priority"`
	SubmittedBy  string                 `form:"submittedBy"`
}

func SearchRequests(q RequestSearchQuery, s *session.Session) ([]approval.ApprovalRequestDetail, error) {
	filters := make([]es.H, 0, 5)
	if q.Query != "" {
		filters = append(filters, es.H{"match": es.H{"rejectionReason": es.H{"query": q.Query, "operator": "AND"}}})
	}
	if q.ResourceType != "" {
		filters = append(filters, es.H{"term": es.H{"resourceType": q.ResourceType}})
	}
	if q.Status != "" {
		filters = append(filters, es.H{"term": es.H{"status": q.Status}})
	}
	if q.Priority != "" {
		filters = append(filters, es.H{"term": es.H{"priority": q.Priority}})
	}
	if q.SubmittedBy != "" {
		filters = append(filters, es.H{"term": es.H{"submittedBy": q.SubmittedBy}})
	}

	sorts := make([]es.H, 0, 1)
	sorts = append(sorts, es.H{"submitTime": es.H{"order": "desc"}})

	root := es.H{"bool": es.H{"filter": filters}}
	r, err := es.SearchFunc(indices.RequestIndexName, es.H{"size": 10000, "query": root, "sort": sorts}, s)
	if err != nil {
		return nil, err
	}

	details := make([]approval.ApprovalRequestDetail, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		d := approval.ApprovalRequestDetail{}
		if err := json.NewDecoder(strings.NewReader(string(hit.Source))).Decode(&d); err != nil {
			return nil, fmt.Errorf(string(hit.Source))
		}
		details = append(details, d)
	}
	return details, nil
}
