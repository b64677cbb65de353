package sessions

import (
	"net/http"

	"upkeep/account"
	"upkeep/bizerror"
	"upkeep/common"
	"upkeep/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func RegisterUsersHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/users", middleWares...)
	g.POST("", handleCreateUser)
	g.GET("", handleQueryUsers)

	b := r.Group("/v1/basic-auths", middleWares...)
	b.PUT("", handleUpdateBasicAuth)
}

func handleCreateUser(c *gin.Context) {
	creation := account.UserCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	user, err := account.CreateUserFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, user)
}

func handleQueryUsers(c *gin.Context) {
	users, err := account.QueryUsersFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: users, Total: uint64(len(*users))})
}

func handleUpdateBasicAuth(c *gin.Context) {
	updating := account.BasicAuthUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	if err := account.UpdateBasicAuthSecret(&updating, session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}
