package approval_test

import (
	"campflow/domain"
	"campflow/domain/approval"
	"campflow/testinfra"
	"context"
	"testing"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func TestQueryPendingApprovals(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should return the shared queue of the session roles", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		db := testDatabase.DS.GormDB(context.Background())
		workflow := buildWorkflow(t, db)

		first := submitDemo(t, workflow.ID)
		second := submitDemo(t, workflow.ID)
		_, err := approval.ApproveRequest(second.ID, &approval.ApprovalDecision{}, manager)
		Expect(err).To(BeNil())

		// managers of the same role see an identical queue
		for _, uid := range []types.ID{301, 302} {
			queue, err := approval.QueryPendingApprovals(testinfra.BuildSession(uid, "manager"))
			Expect(err).To(BeNil())
			Expect(len(queue)).To(Equal(1))
			Expect(queue[0].ID).To(Equal(first.ID))
			Expect(queue[0].CurrentStep.Name).To(Equal("manager review"))
		}

		queue, err := approval.QueryPendingApprovals(director)
		Expect(err).To(BeNil())
		Expect(len(queue)).To(Equal(1))
		Expect(queue[0].ID).To(Equal(second.ID))
	})

	t.Run("should return empty queue for session without roles", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		db := testDatabase.DS.GormDB(context.Background())
		workflow := buildWorkflow(t, db)
		submitDemo(t, workflow.ID)

		queue, err := approval.QueryPendingApprovals(testinfra.BuildSession(999))
		Expect(err).To(BeNil())
		Expect(queue).To(BeEmpty())
	})

	t.Run("should exclude terminal requests", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		db := testDatabase.DS.GormDB(context.Background())
		workflow := buildWorkflow(t, db)
		request := submitDemo(t, workflow.ID)

		Expect(approval.RejectRequest(request.ID, &approval.Rejection{Reason: "no"}, manager)).To(BeNil())

		queue, err := approval.QueryPendingApprovals(manager)
		Expect(err).To(BeNil())
		Expect(queue).To(BeEmpty())
	})
}

func TestQuerySubmittedRequests(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should return only the session's own requests", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		db := testDatabase.DS.GormDB(context.Background())
		workflow := buildWorkflow(t, db)

		mine := submitDemo(t, workflow.ID)
		_, err := approval.SubmitApprovalRequest(&approval.RequestSubmission{
			WorkflowID: workflow.ID, ResourceType: "booking", ResourceID: 1001,
		}, testinfra.BuildSession(201))
		Expect(err).To(BeNil())

		requests, err := approval.QuerySubmittedRequests(submitter)
		Expect(err).To(BeNil())
		Expect(len(requests)).To(Equal(1))
		Expect(requests[0].ID).To(Equal(mine.ID))
		Expect(requests[0].CurrentStep).ToNot(BeNil())
	})
}

func TestDetailApprovalRequest(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should attach the current step", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		db := testDatabase.DS.GormDB(context.Background())
		workflow := buildWorkflow(t, db)
		request := submitDemo(t, workflow.ID)

		detail, err := approval.DetailApprovalRequest(request.ID, submitter)
		Expect(err).To(BeNil())
		Expect(detail.ID).To(Equal(request.ID))
		Expect(detail.CurrentStep.ID).To(Equal(workflow.Steps[0].ID))
	})

	t.Run("should leave current step empty on terminal requests", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		db := testDatabase.DS.GormDB(context.Background())
		workflow := buildWorkflow(t, db)
		request := submitDemo(t, workflow.ID)
		Expect(approval.RejectRequest(request.ID, &approval.Rejection{Reason: "no"}, manager)).To(BeNil())

		detail, err := approval.DetailApprovalRequest(request.ID, submitter)
		Expect(err).To(BeNil())
		Expect(detail.CurrentStep).To(BeNil())
	})

	t.Run("should report error when request not exist", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		detail, err := approval.DetailApprovalRequest(types.ID(404), submitter)
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(gorm.ErrRecordNotFound))
	})
}

func TestQueryApprovalHistory(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should list all actions in order with actor names", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		db := testDatabase.DS.GormDB(context.Background())
		workflow := buildWorkflow(t, db)
		request := submitDemo(t, workflow.ID)

		Expect(approval.RequestChanges(request.ID,
			&approval.ChangesRequest{Changes: "fix dates"}, manager)).To(BeNil())
		_, err := approval.ApproveRequest(request.ID, &approval.ApprovalDecision{Comment: "ok now"}, manager)
		Expect(err).To(BeNil())
		Expect(approval.RejectRequest(request.ID, &approval.Rejection{Reason: "over budget"}, director)).To(BeNil())

		history, err := approval.QueryApprovalHistory(request.ID, submitter)
		Expect(err).To(BeNil())
		Expect(len(history)).To(Equal(3))
		Expect(history[0].Action).To(Equal(domain.ActionRequestedChanges))
		Expect(history[0].ActorName).To(Equal("m1"))
		Expect(history[1].Action).To(Equal(domain.ActionApproved))
		Expect(history[1].ActorName).To(Equal("m1"))
		Expect(history[2].Action).To(Equal(domain.ActionRejected))
		Expect(history[2].ActorName).To(Equal("d1"))
	})

	t.Run("should report error when request not exist", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		history, err := approval.QueryApprovalHistory(types.ID(404), submitter)
		Expect(history).To(BeNil())
		Expect(err).To(Equal(gorm.ErrRecordNotFound))
	})
}

func TestLoadRequests(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should page over all requests", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		db := testDatabase.DS.GormDB(context.Background())
		workflow := buildWorkflow(t, db)

		for i := 0; i < 3; i++ {
			submitDemo(t, workflow.ID)
		}

		page1, err := approval.LoadRequests(1, 2, submitter)
		Expect(err).To(BeNil())
		Expect(len(page1)).To(Equal(2))
		page2, err := approval.LoadRequests(2, 2, submitter)
		Expect(err).To(BeNil())
		Expect(len(page2)).To(Equal(1))
		page3, err := approval.LoadRequests(3, 2, submitter)
		Expect(err).To(BeNil())
		Expect(page3).To(BeEmpty())
	})
}
