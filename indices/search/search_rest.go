package search

import (
	"campflow/bizerror"
	"campflow/session"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	PathRequestSearch = "/v1/request-search"
)

func RegisterSearchRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathRequestSearch, middleWares...)
	g.GET("", handleSearchRequests)
}

func handleSearchRequests(c *gin.Context) {
	query := RequestSearchQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	results, err := SearchRequestsFunc(query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, results)
}
