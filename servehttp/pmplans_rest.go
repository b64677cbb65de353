package servehttp

import (
	"errors"
	"net/http"

	"upkeep/bizerror"
	"upkeep/common"
	"upkeep/domain"
	"upkeep/domain/pmplan"
	"upkeep/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathPmPlans       = "/v1/pm-plans"
	PathPmGenerations = "/v1/pm-generations"
)

func RegisterPmPlansRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathPmPlans, middleWares...)
	g.POST("", handleCreatePlan)
	g.GET("", handleQueryPlans)
	g.GET(":id", handleDetailPlan)
	g.DELETE(":id", handleDeactivatePlan)

	gen := r.Group(PathPmGenerations, middleWares...)
	gen.POST("", handleGenerateDue)
}

func handleCreatePlan(c *gin.Context) {
	creation := domain.PmPlanCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	plan, err := pmplan.CreatePlanFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, plan)
}

func handleQueryPlans(c *gin.Context) {
	query := domain.PmPlanQuery{}
	if err := c.MustBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	plans, err := pmplan.QueryPlansFunc(&query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: plans, Total: uint64(len(*plans))})
}

func handleDetailPlan(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	plan, err := pmplan.DetailPlanFunc(id, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, plan)
}

func handleDeactivatePlan(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}

	if err := pmplan.DeactivatePlanFunc(id, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

type GenerationRequest struct {
	MaxPlans int `json:"maxPlans"`
}

// handleGenerateDue is the manual trigger of the periodic generation pass.
func handleGenerateDue(c *gin.Context) {
	s := session.ExtractSessionFromGinContext(c)
	if !s.Perms.HasElevatedRank() {
		panic(bizerror.ErrForbidden)
	}

	req := GenerationRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
	}

	result, err := pmplan.GenerateDueFunc(req.MaxPlans)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, result)
}
