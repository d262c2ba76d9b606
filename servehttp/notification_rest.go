package servehttp

import (
	"campflow/notification"
	"campflow/session"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var (
	PathNotifications      = "/v1/notifications"
	PathDispatchRuns       = "/v1/notification-dispatch-runs"
	dispatchRunRateLimiter = rate.NewLimiter(rate.Every(time.Second), 1)
)

func RegisterNotificationHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathNotifications, middleWares...)
	g.GET("", handleQueryNotifications)

	d := r.Group(PathDispatchRuns, middleWares...)
	d.POST("", handleCreateDispatchRun)
}

func handleQueryNotifications(c *gin.Context) {
	records, err := notification.QueryNotificationsFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleCreateDispatchRun(c *gin.Context) {
	if !dispatchRunRateLimiter.Allow() {
		c.JSON(http.StatusOK, gin.H{"result": "request rate limited"})
		return
	}

	started, err := notification.ScheduleNewDispatchRunFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	if started {
		c.JSON(http.StatusCreated, gin.H{"result": "started"})
	} else {
		c.JSON(http.StatusOK, gin.H{"result": "already running"})
	}
}
