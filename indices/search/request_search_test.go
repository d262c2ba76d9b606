package search

import (
	"campflow/client/es"
	"campflow/domain"
	"campflow/domain/approval"
	"campflow/indices"
	"campflow/testinfra"
	"strings"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
	. "github.com/onsi/gomega"
)

func TestSearchRequests(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should be able to search approval requests", func(t *testing.T) {
		defer afterEach(t)
		beforeEach(t)

		searcher := testinfra.BuildSession(10)

		ts1 := types.TimestampOfDate(2020, 1, 1, 3, 4, 5, 0, time.Local)
		ts2 := types.TimestampOfDate(2020, 1, 2, 3, 4, 5, 0, time.Local)
		ts3 := types.TimestampOfDate(2020, 1, 3, 3, 4, 5, 0, time.Local)

		r1000 := domain.ApprovalRequest{ID: 1000, WorkflowID: 100, ResourceType: "document", ResourceID: 3001,
			CurrentStepID: 201, Status: domain.RequestStatusPending, SubmittedBy: 500, SubmitTime: ts1,
			Priority: domain.PriorityMedium, Version: 1}
		r1001 := domain.ApprovalRequest{ID: 1001, WorkflowID: 100, ResourceType: "document", ResourceID: 3002,
			CurrentStepID: 201, Status: domain.RequestStatusPending, SubmittedBy: 600, SubmitTime: ts3,
			Priority: domain.PriorityUrgent, Version: 1}
		r1002 := domain.ApprovalRequest{ID: 1002, WorkflowID: 100, ResourceType: "document", ResourceID: 3003,
			CurrentStepID: 0, Status: domain.RequestStatusApproved, SubmittedBy: 500, SubmitTime: ts2, CompleteTime: ts3,
			Priority: domain.PriorityMedium, Version: 3}
		r2000 := domain.ApprovalRequest{ID: 2000, WorkflowID: 101, ResourceType: "expense", ResourceID: 4001,
			CurrentStepID: 301, Status: domain.RequestStatusPending, SubmittedBy: 500, SubmitTime: ts2,
			Priority: domain.PriorityHigh, Version: 1}
		ts4 := types.TimestampOfDate(2020, 1, 4, 3, 4, 5, 0, time.Local)
		r1003 := domain.ApprovalRequest{ID: 1003, WorkflowID: 100, ResourceType: "document", ResourceID: 3004,
			CurrentStepID: 0, Status: domain.RequestStatusRejected, SubmittedBy: 700, SubmitTime: ts4, CompleteTime: ts4,
			Priority: domain.PriorityLow, RejectionReason: "budget limit exceeded", Version: 2}

		for _, r := range []domain.ApprovalRequest{r1000, r1001, r1002, r2000, r1003} {
			Expect(indices.IndexRequests([]approval.ApprovalRequestDetail{{ApprovalRequest: r}}, searcher)).To(BeNil())
		}

		// assert: no filter returns all, latest submitted first
		requests, err := SearchRequests(RequestSearchQuery{}, searcher)
		Expect(err).To(BeNil())
		Expect(len(requests)).To(Equal(5))
		Expect(requests[0].ApprovalRequest).To(Equal(r1003))
		Expect(requests[4].ApprovalRequest).To(Equal(r1000))

		// assert: filter by resource type
		requests, err = SearchRequests(RequestSearchQuery{ResourceType: "expense"}, searcher)
		Expect(err).To(BeNil())
		Expect(len(requests)).To(Equal(1))
		Expect(requests[0].ApprovalRequest).To(Equal(r2000))

		// assert: filter by status
		requests, err = SearchRequests(RequestSearchQuery{Status: domain.RequestStatusApproved}, searcher)
		Expect(err).To(BeNil())
		Expect(len(requests)).To(Equal(1))
		Expect(requests[0].ApprovalRequest).To(Equal(r1002))

		// assert: filter by priority
		requests, err = SearchRequests(RequestSearchQuery{Priority: domain.PriorityUrgent}, searcher)
		Expect(err).To(BeNil())
		Expect(len(requests)).To(Equal(1))
		Expect(requests[0].ApprovalRequest).To(Equal(r1001))

		// assert: filter by submitter
		requests, err = SearchRequests(RequestSearchQuery{SubmittedBy: "600"}, searcher)
		Expect(err).To(BeNil())
		Expect(len(requests)).To(Equal(1))
		Expect(requests[0].ApprovalRequest).To(Equal(r1001))

		// assert: text match, all words must match
		requests, err = SearchRequests(RequestSearchQuery{Query: "budget exceeded"}, searcher)
		Expect(err).To(BeNil())
		Expect(len(requests)).To(Equal(1))
		Expect(requests[0].ApprovalRequest).To(Equal(r1003))

		requests, err = SearchRequests(RequestSearchQuery{Query: "budget missing"}, searcher)
		Expect(err).To(BeNil())
		Expect(len(requests)).To(BeZero())

		requests, err = SearchRequests(RequestSearchQuery{Query: "limit", Status: domain.RequestStatusRejected}, searcher)
		Expect(err).To(BeNil())
		Expect(len(requests)).To(Equal(1))
		Expect(requests[0].ApprovalRequest).To(Equal(r1003))

		// assert: filters are combined
		requests, err = SearchRequests(RequestSearchQuery{ResourceType: "document", Status: domain.RequestStatusPending, SubmittedBy: "500"}, searcher)
		Expect(err).To(BeNil())
		Expect(len(requests)).To(Equal(1))
		Expect(requests[0].ApprovalRequest).To(Equal(r1000))

		// assert: no match
		requests, err = SearchRequests(RequestSearchQuery{ResourceType: "expense", Status: domain.RequestStatusApproved}, searcher)
		Expect(err).To(BeNil())
		Expect(len(requests)).To(BeZero())
	})
}

func beforeEach(t *testing.T) {
	es.CreateClientFromEnv()
	es.IndexFunc = es.Index
	es.SearchFunc = es.Search

	indices.RequestIndexName = "requests_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

func afterEach(t *testing.T) {
	if strings.Contains(indices.RequestIndexName, "_test_") {
		Expect(es.DropIndex(indices.RequestIndexName, testinfra.BuildSession(10))).To(BeNil())
	}
}
