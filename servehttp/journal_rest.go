package servehttp

import (
	"net/http"

	"upkeep/bizerror"
	"upkeep/common"
	"upkeep/journal"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathJournalRecords = "/v1/journal-records"

type JournalRecordQuery struct {
	WorkItemID types.ID `json:"workItemId" form:"workItemId" binding:"required"`
	Limit      int      `json:"limit" form:"limit"`
}

func RegisterJournalRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathJournalRecords, middleWares...)
	g.GET("", handleListJournalRecords)
}

func handleListJournalRecords(c *gin.Context) {
	query := JournalRecordQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	records, err := journal.ListRecordsFunc(query.WorkItemID, query.Limit)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: records, Total: uint64(len(records))})
}
