package servehttp

import (
	"campflow/bizerror"
	"campflow/domain"
	"campflow/domain/flow"
	"campflow/misc"
	"campflow/session"
	"net/http"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterWorkflowHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/workflows", middleWares...)

	handler := &workflowHandler{
		validator: validator.New(),
	}

	g.POST("", handler.handleCreateWorkflow)
	g.GET("", handler.handleQueryWorkflows)
	g.GET(":flowId", handler.handleDetailWorkflow)
	g.PUT(":flowId", handler.handleUpdateWorkflowBase)
	g.DELETE(":flowId", handler.handleDeleteWorkflow)
}

type workflowHandler struct {
	validator *validator.Validate
}

func (h *workflowHandler) handleQueryWorkflows(c *gin.Context) {
	query := domain.WorkflowQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	flows, err := flow.QueryWorkflowsFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, flows)
}

func (h *workflowHandler) handleCreateWorkflow(c *gin.Context) {
	creation := flow.WorkflowCreation{}
	err := c.ShouldBindBodyWith(&creation, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	workflow, err := flow.CreateWorkflowFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusCreated, workflow)
}

func (h *workflowHandler) handleDetailWorkflow(c *gin.Context) {
	id, err := types.ParseID(c.Param("flowId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("flowId") + "'"})
		return
	}

	workflowDetail, err := flow.DetailWorkflowFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, workflowDetail)
}

func (h *workflowHandler) handleUpdateWorkflowBase(c *gin.Context) {
	id, err := types.ParseID(c.Param("flowId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("flowId") + "'"})
		return
	}

	updating := flow.WorkflowBaseUpdation{}
	err = c.ShouldBindBodyWith(&updating, binding.JSON)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err = h.validator.Struct(updating); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	workflow, err := flow.UpdateWorkflowBaseFunc(id, &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, workflow)
}

func (h *workflowHandler) handleDeleteWorkflow(c *gin.Context) {
	id, err := types.ParseID(c.Param("flowId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: "invalid id '" + c.Param("flowId") + "'"})
		return
	}

	if err := flow.DeleteWorkflowFunc(id, session.ExtractSessionFromGinContext(c)); err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.AbortWithStatus(http.StatusNoContent)
}
