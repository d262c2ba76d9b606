package indices

import (
	"campflow/account"
	"campflow/authority"
	"campflow/bizerror"
	"campflow/domain/approval"
	"campflow/notification"
	"campflow/session"
	"context"
	"fmt"
	"sync"

	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	RequestIndexHandlerName = "requestIndexer"

	indexRobot = &session.Session{
		Identity: session.Identity{ID: 10, Name: "index-robot"},
		Perms:    authority.Permissions{account.SystemAdminRole},
		Context:  context.Background(),
	}

	lock    sync.Mutex
	running bool

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
)

func StartCron() {
	crontab := cron.New()
	crontab.AddFunc("@midnight", func() {
		if err := IndicesFullSyncFunc(); err != nil {
			logrus.Errorf("indices full sync run failed: %v", err)
		}
	})
	crontab.Start()
}

func ScheduleNewSyncRun(s *session.Session) (bool, error) {
	if !s.Perms.HasRole(account.SystemAdminRole) {
		return false, bizerror.ErrForbidden
	}

	lock.Lock()
	if running {
		lock.Unlock()
		return false, nil
	}
	running = true
	lock.Unlock()

	waitRunning := sync.WaitGroup{}
	waitRunning.Add(1)
	go func() {
		waitRunning.Done()
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		IndicesFullSyncFunc()
	}()
	waitRunning.Wait()
	return true, nil
}

var (
	SyncBatchSize = 500
)

func IndicesFullSync() (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on indices full sync: %v", ret)
			}
		}
	}()

	page := 1
	for {
		requests, err := approval.LoadRequestsFunc(page, SyncBatchSize, indexRobot)
		if err != nil {
			logrus.Warnf("indices fully sync: error on retrieve requests(page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
			page++
			continue
		}

		if len(requests) == 0 {
			logrus.Infof("indices fully sync: there are no more request to index")
			return nil // loop exit
		}

		if err := IndexRequests(requests, indexRobot); err != nil {
			logrus.Warnf("indices fully sync: error on index requests(page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
		}
		page++
	}
}

// IndexRequestNotificationHandle keeps the search index in step with the
// request state: every notification marks a state change of its request.
func IndexRequestNotificationHandle(r *notification.Record) *notification.HandleResult {
	detail, err := approval.DetailApprovalRequestFunc(r.RequestID, indexRobot)
	if err != nil {
		return &notification.HandleResult{
			Message:           fmt.Sprintf("detail request when index request %d, %v", r.RequestID, err),
			HandlerIdentifier: RequestIndexHandlerName,
		}
	}
	if err := IndexRequests([]approval.ApprovalRequestDetail{*detail}, indexRobot); err != nil {
		return &notification.HandleResult{
			Message:           fmt.Sprintf("index request %d, %v", r.RequestID, err),
			HandlerIdentifier: RequestIndexHandlerName,
		}
	}
	return &notification.HandleResult{Success: true, HandlerIdentifier: RequestIndexHandlerName}
}
