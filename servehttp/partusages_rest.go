package servehttp

import (
	"errors"
	"net/http"

	"upkeep/bizerror"
	"upkeep/common"
	"upkeep/domain/workitem/partusage"
	"upkeep/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathPartUsages = "/v1/part-usages"

type PartUsageQuery struct {
	WorkItemID types.ID `json:"workItemId" form:"workItemId" binding:"required"`
}

func RegisterPartUsagesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathPartUsages, middleWares...)
	g.POST("", handleAddPartUsage)
	g.GET("", handleListPartUsages)
	g.DELETE(":id", handleRemovePartUsage)
}

func handleAddPartUsage(c *gin.Context) {
	creation := partusage.PartUsageCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	usage, err := partusage.AddPartUsageFunc(creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, usage)
}

func handleListPartUsages(c *gin.Context) {
	query := PartUsageQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	usages, err := partusage.ListPartUsagesFunc(query.WorkItemID, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: usages, Total: uint64(len(usages))})
}

func handleRemovePartUsage(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	if err := partusage.RemovePartUsageFunc(id, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}
