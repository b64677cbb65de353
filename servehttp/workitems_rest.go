package servehttp

import (
	"errors"
	"net/http"

	"upkeep/bizerror"
	"upkeep/common"
	"upkeep/domain"
	"upkeep/domain/state"
	"upkeep/domain/workitem"
	"upkeep/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathWorkItems = "/v1/work-items"

func RegisterWorkItemsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkItems, middleWares...)
	g.GET("", handleQueryWorkItems)
	g.POST("", handleCreateWorkItem)
	g.GET(":id", handleDetailWorkItem)
	g.PUT(":id", handleUpdateWorkItem)
	g.POST(":id/comments", handleAddComment)

	t := r.Group("/v1/work-item-transitions", middleWares...)
	t.POST("", handleCreateTransition)
}

func handleQueryWorkItems(c *gin.Context) {
	query := domain.WorkItemQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	items, err := workitem.QueryWorkItemsFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: items, Total: uint64(len(*items))})
}

func handleCreateWorkItem(c *gin.Context) {
	creation := domain.WorkItemCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := workitem.CreateWorkItemFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, detail)
}

func handleDetailWorkItem(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	detail, err := workitem.DetailWorkItemFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleUpdateWorkItem(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	updating := domain.WorkItemUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := workitem.UpdateWorkItemFunc(id, &updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleAddComment(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	creation := domain.CommentCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	record, err := workitem.AddCommentFunc(id, &creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

type TransitionCreation struct {
	WorkItemID types.ID `json:"workItemId" binding:"required"`
	Action     string   `json:"action" binding:"required"`
}

func handleCreateTransition(c *gin.Context) {
	creation := TransitionCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	s := session.ExtractSessionFromGinContext(c)
	var detail *domain.WorkItemDetail
	var err error
	switch creation.Action {
	case state.ActionStart:
		detail, err = workitem.StartWorkItemFunc(creation.WorkItemID, s)
	case state.ActionStop:
		detail, err = workitem.StopWorkItemFunc(creation.WorkItemID, s)
	case state.ActionCancel:
		detail, err = workitem.CancelWorkItemFunc(creation.WorkItemID, s)
	case state.ActionReopen:
		detail, err = workitem.ReopenWorkItemFunc(creation.WorkItemID, s)
	default:
		panic(&bizerror.ErrBadParam{Cause: errors.New("unknown action '" + creation.Action + "'")})
	}
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, detail)
}
