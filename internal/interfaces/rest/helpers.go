package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/contractgen/backend/pkg/errors"
)

// Response keys
const (
	ResponseData    = "data"
	ResponseMessage = "message"
	ResponseError   = "error"
	ResponseCode    = "code"
)

// RespondAppError sends a standardised JSON error response using pkg/errors
func RespondAppError(c *gin.Context, err error) {
	code := errors.GetHTTPStatus(err)
	resp := errors.ToResponse(err)

	switch {
	case code >= 500:
		zap.L().Error("❌ request failed",
			zap.Int("status", code),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	case errors.IsIndex(err):
		zap.L().Warn("clause index out of range", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}

	_ = c.Error(err)
	body := gin.H{
		ResponseError:   resp.Message,
		ResponseMessage: resp.Message,
		ResponseCode:    resp.Code,
		ResponseData:    nil,
	}
	if resp.Details != nil {
		body["details"] = resp.Details
	}
	c.JSON(code, body)
}

// RespondData wraps result in the {data} envelope
func RespondData(c *gin.Context, status int, result any) {
	c.JSON(status, gin.H{ResponseData: result})
}

// RespondMessage sends a success message, optionally with data
func RespondMessage(c *gin.Context, status int, message string, result any) {
	response := gin.H{ResponseMessage: message}
	if result != nil {
		response[ResponseData] = result
	}
	c.JSON(status, response)
}

// BindJSON binds JSON and returns true if successful. If failed, it sends bad request error.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, errors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// ParamIndex parses the :index path parameter
func ParamIndex(c *gin.Context) (int, bool) {
	raw := c.Param("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		RespondAppError(c, errors.NewValidationError("index", "index must be an integer: "+raw))
		return 0, false
	}
	return index, true
}

// HandleGetEnvelope executes a read action and returns the result in the {data} envelope
func HandleGetEnvelope(c *gin.Context, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondData(c, http.StatusOK, result)
}
