package indices

import (
	"campflow/client/es"
	"campflow/domain/approval"
	"campflow/session"
	"fmt"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	RequestIndexName = "approval-requests"
)

type RequestDocument struct {
	approval.ApprovalRequestDetail
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

func IndexRequests(requests []approval.ApprovalRequestDetail, s *session.Session) error {
	docs := make([]RequestDocument, 0, len(requests))
	for _, request := range requests {
		docs = append(docs, RequestDocument{ApprovalRequestDetail: request})
	}

	if err := saveRequestDocuments(docs, s); err != nil {
		return err
	}
	return nil
}

func saveRequestDocuments(docs []RequestDocument, s *session.Session) BatchActionError {
	errs := BatchActionError{}

	for _, doc := range docs {
		if err := es.IndexFunc(RequestIndexName, doc.ID, doc, s); err != nil {
			errs[doc.ID] = err
			logrus.Warnf("index approval request %d %s\n", doc.ID, err)
		} else {
			logrus.Infof("index approval request %d successfully\n", doc.ID)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
