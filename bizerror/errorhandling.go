package bizerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"upkeep/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")

	ErrInvalidTransition   = errors.New("invalid transition")
	ErrImmutable           = errors.New("cancelled work item is immutable")
	ErrInvalidRange        = errors.New("stop time is before start time")
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	ErrUnknownKind      = errors.New("unknown work item kind")
	ErrUnknownFrequency = errors.New("unknown plan frequency")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message, Data: nil}
}

func ErrorHandling() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handle(c)
		c.Next()
	}
}

func handle(c *gin.Context) {
	if ret := recover(); ret != nil {
		err, ok := ret.(error)
		if !ok {
			err = fmt.Errorf("%s", ret)
		}
		HandleError(c, err)
	} else {
		if err := c.Errors.Last(); err != nil {
			HandleError(c, err)
		}
	}
}

func HandleError(c *gin.Context, err error) {
	logrus.Error(err)

	genericErr := err
	var ginErr *gin.Error
	if errors.As(err, &ginErr) {
		genericErr = ginErr.Err
	}

	if bizErr, ok := genericErr.(BizError); ok {
		respond := bizErr.Respond()
		c.JSON(respond.Status, &common.ErrorBody{Code: respond.Code, Message: respond.Message, Data: respond.Data})
		c.Abort()
		return
	}

	// bad request: io.EOF (no body).
	if errors.Is(genericErr, io.EOF) {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.body_not_found", Message: "body not found"})
		c.Abort()
		return
	}
	// bad request: json syntax error
	if syntaxErr, ok := genericErr.(*json.SyntaxError); ok {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.invalid_body_format", Message: "invalid body format", Data: syntaxErr.Error()})
		c.Abort()
		return
	}
	// validation failed
	if validationErr, ok := genericErr.(validator.ValidationErrors); ok {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "bad_request.validation_failed", Message: "validation failed", Data: validationErr.Error()})
		c.Abort()
		return
	}

	if errors.Is(genericErr, ErrUnauthenticated) {
		c.JSON(http.StatusUnauthorized, &common.ErrorBody{Code: "common.unauthenticated", Message: "unauthenticated"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrForbidden) {
		c.JSON(http.StatusForbidden, &common.ErrorBody{Code: "security.forbidden", Message: "access forbidden"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrInvalidTransition) {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "lifecycle.invalid_transition", Message: "invalid transition"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrImmutable) {
		c.JSON(http.StatusConflict, &common.ErrorBody{Code: "lifecycle.immutable", Message: "cancelled work item is immutable"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrInvalidRange) {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "lifecycle.invalid_range", Message: "stop time is before start time"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrConcurrencyConflict) {
		c.JSON(http.StatusConflict, &common.ErrorBody{Code: "common.concurrency_conflict", Message: "concurrency conflict"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrUnknownKind) {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "lifecycle.unknown_kind", Message: "unknown work item kind"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, ErrUnknownFrequency) {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "pm.unknown_frequency", Message: "unknown plan frequency"})
		c.Abort()
		return
	}
	if errors.Is(genericErr, gorm.ErrRecordNotFound) || errors.Is(genericErr, ErrNotFound) {
		c.JSON(http.StatusNotFound, &common.ErrorBody{Code: "common.record_not_found", Message: "record not found"})
		c.Abort()
		return
	}

	c.JSON(http.StatusInternalServerError, &common.ErrorBody{Code: "common.internal_server_error", Message: err.Error()})
	c.Abort()
}
