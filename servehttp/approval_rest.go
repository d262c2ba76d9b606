package servehttp

import (
	"campflow/bizerror"
	"campflow/domain/approval"
	"campflow/misc"
	"campflow/session"
	"net/http"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterApprovalHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	handler := &approvalHandler{
		validator: validator.New(),
	}

	g := r.Group("/v1/approval-requests", middleWares...)
	g.POST("", handler.handleSubmitRequest)
	g.GET("", handler.handleQuerySubmittedRequests)
	g.GET(":requestId", handler.handleDetailRequest)
	g.GET(":requestId/actions", handler.handleQueryHistory)
	g.POST(":requestId/approval", handler.handleApproveRequest)
	g.POST(":requestId/rejection", handler.handleRejectRequest)
	g.POST(":requestId/change-requests", handler.handleRequestChanges)
	g.POST(":requestId/comments", handler.handleCommentRequest)

	p := r.Group("/v1/pending-approvals", middleWares...)
	p.GET("", handler.handleQueryPendingApprovals)
}

type approvalHandler struct {
	validator *validator.Validate
}

func (h *approvalHandler) handleSubmitRequest(c *gin.Context) {
	submission := approval.RequestSubmission{}
	if err := c.ShouldBindBodyWith(&submission, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(submission); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := approval.SubmitApprovalRequestFunc(&submission, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, detail)
}

func (h *approvalHandler) handleApproveRequest(c *gin.Context) {
	id := parseRequestId(c)
	if id.IsZero() {
		return
	}

	decision := approval.ApprovalDecision{}
	if err := c.ShouldBindBodyWith(&decision, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	outcome, err := approval.ApproveRequestFunc(id, &decision, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, outcome)
}

func (h *approvalHandler) handleRejectRequest(c *gin.Context) {
	id := parseRequestId(c)
	if id.IsZero() {
		return
	}

	rejection := approval.Rejection{}
	if err := c.ShouldBindBodyWith(&rejection, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(rejection); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	if err := approval.RejectRequestFunc(id, &rejection, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func (h *approvalHandler) handleRequestChanges(c *gin.Context) {
	id := parseRequestId(c)
	if id.IsZero() {
		return
	}

	changes := approval.ChangesRequest{}
	if err := c.ShouldBindBodyWith(&changes, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(changes); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	if err := approval.RequestChangesFunc(id, &changes, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func (h *approvalHandler) handleCommentRequest(c *gin.Context) {
	id := parseRequestId(c)
	if id.IsZero() {
		return
	}

	comment := approval.RequestComment{}
	if err := c.ShouldBindBodyWith(&comment, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(comment); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	if err := approval.CommentRequestFunc(id, &comment, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusCreated)
}

func (h *approvalHandler) handleQueryPendingApprovals(c *gin.Context) {
	details, err := approval.QueryPendingApprovalsFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, details)
}

func (h *approvalHandler) handleQuerySubmittedRequests(c *gin.Context) {
	details, err := approval.QuerySubmittedRequestsFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, details)
}

func (h *approvalHandler) handleDetailRequest(c *gin.Context) {
	id := parseRequestId(c)
	if id.IsZero() {
		return
	}

	detail, err := approval.DetailApprovalRequestFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func (h *approvalHandler) handleQueryHistory(c *gin.Context) {
	id := parseRequestId(c)
	if id.IsZero() {
		return
	}

	history, err := approval.QueryApprovalHistoryFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, history)
}

func parseRequestId(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("requestId") + "'"})
		return types.ID(0)
	}
	return id
}
