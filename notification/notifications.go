package notification

import (
	"campflow/idgen"
	"campflow/persistence"
	"campflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	notificationIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	PersistCreateFunc      = persistCreate
	QueryNotificationsFunc = QueryNotifications
)

// CreateRecords persists one notification row per recipient within the caller's transaction.
func CreateRecords(requestId types.ID, notificationType Type, recipients []types.ID, tx *gorm.DB) ([]Record, error) {
	records := make([]Record, 0, len(recipients))
	now := types.CurrentTimestamp()
	for _, recipient := range recipients {
		record := Record{
			ID:          idgen.NextID(notificationIdWorker),
			RequestID:   requestId,
			RecipientID: recipient,
			Type:        notificationType,
			CreateTime:  now,
		}
		if err := PersistCreateFunc(&record, tx); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func persistCreate(record *Record, db *gorm.DB) error {
	return db.Create(record).Error
}

func QueryNotifications(s *session.Session) ([]Record, error) {
	var records []Record
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Where(&Record{RecipientID: s.Identity.ID}).
		Order("create_time DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Handler returns nil if it does not care about the record.
type Handler func(r *Record) *HandleResult

type HandleResult struct {
	Success           bool
	Message           string
	HandlerIdentifier string
}

var Handlers []Handler

var InvokeHandlersFunc = invokeHandlers

func invokeHandlers(records []Record) []HandleResult {
	results := []HandleResult{}
	for idx := range records {
		record := &records[idx]
		for _, handler := range Handlers {
			r := handler(record)
			if r == nil {
				continue
			}

			results = append(results, *r)

			if r.Success {
				logrus.Info("post handle notification. ", r)
			} else {
				logrus.Error("post handler error. ", r)
			}
		}
	}
	return results
}
