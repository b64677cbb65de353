package journal

import (
	"github.com/sirupsen/logrus"
)

/*
return nil if not support
*/
type RecordHandler func(r *Record) *RecordHandleResult

type RecordHandleResult struct {
	Success           bool
	Message           string
	HandlerIdentifier string
}

var RecordHandlers []RecordHandler

var InvokeHandlersFunc = invokeHandlers

func invokeHandlers(record *Record) []RecordHandleResult {
	results := []RecordHandleResult{}
	for _, handler := range RecordHandlers {
		logrus.Debug("pre handle journal record ", record.Entry)
		r := handler(record)

		if r == nil {
			continue
		}

		results = append(results, *r)

		if r.Success {
			logrus.Info("post handle journal record. ", r)
		} else {
			logrus.Error("post handler error. ", r)
		}
	}
	return results
}
