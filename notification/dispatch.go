package notification

import (
	"campflow/account"
	"campflow/bizerror"
	"campflow/persistence"
	"campflow/session"
	"context"
	"fmt"
	"sync"

	"github.com/fundwit/go-commons/types"
	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	lock    sync.Mutex
	running bool

	DispatchBatchSize = 500

	DispatchUndeliveredFunc    = DispatchUndelivered
	ScheduleNewDispatchRunFunc = ScheduleNewDispatchRun
)

func StartCron() {
	crontab := cron.New(cron.WithSeconds())
	crontab.AddFunc("0 * * * * ?", func() {
		if err := DispatchUndeliveredFunc(); err != nil {
			logrus.Errorf("notification dispatch run failed: %v", err)
		}
	})
	crontab.Start()
}

// ScheduleNewDispatchRun triggers an asynchronous dispatch run, at most one at a time.
func ScheduleNewDispatchRun(s *session.Session) (bool, error) {
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
		if err := DispatchUndeliveredFunc(); err != nil {
			logrus.Errorf("notification dispatch run failed: %v", err)
		}
	}()
	waitRunning.Wait()
	return true, nil
}

// DispatchUndelivered walks undelivered notification rows, invokes the
// registered handlers and stamps the rows dispatched. A handler failure is
// logged and the row stays undelivered for the next run.
func DispatchUndelivered() (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on notification dispatch: %v", ret)
			}
		}
	}()

	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	lastId := types.ID(0)
	for {
		var records []Record
		if err := db.Where("dispatched = ? AND id > ?", false, lastId).Order("id ASC").
			Limit(DispatchBatchSize).Find(&records).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		lastId = records[len(records)-1].ID

		for idx := range records {
			record := records[idx]
			results := InvokeHandlersFunc([]Record{record})
			failed := false
			for _, r := range results {
				if !r.Success {
					failed = true
				}
			}
			if failed {
				logrus.Warnf("notification %d is not dispatched, will retry in next run", record.ID)
				continue
			}

			if err := db.Model(&Record{}).Where("id = ? AND dispatched = ?", record.ID, false).
				Update(map[string]interface{}{"dispatched": true, "dispatch_time": types.CurrentTimestamp()}).
				Error; err != nil {
				return err
			}
		}

		if len(records) < DispatchBatchSize {
			return nil
		}
	}
}

func init() {
	Handlers = append(Handlers, loggingHandler)
}

func loggingHandler(r *Record) *HandleResult {
	logrus.Infof("notification %s for request %d to recipient %d", r.Type, r.RequestID, r.RecipientID)
	return &HandleResult{Success: true, HandlerIdentifier: "notificationLogger"}
}
