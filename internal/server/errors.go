package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/indielance/cra/internal/result"
)

type errorResponse struct {
	Error result.Failure `json:"error"`
}

// respond translates a result into a wire response: the data payload on
// success, or the failure envelope with a status derived from its severity.
func respond[T any](c *gin.Context, okStatus int, res result.Result[T]) {
	if res.OK() {
		c.JSON(okStatus, gin.H{"data": res.Data()})
		return
	}
	f := res.Failure()
	c.JSON(httpStatus(f.Status), errorResponse{Error: *f})
}

func httpStatus(status result.Status) int {
	switch status {
	case result.StatusBadRequest:
		return http.StatusBadRequest
	case result.StatusForbidden:
		return http.StatusForbidden
	case result.StatusConflict:
		return http.StatusConflict
	case result.StatusNotFound:
		return http.StatusNotFound
	case result.StatusUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
		Error: *result.NewFailure(result.StatusUnauthorized, "unauthorized", "a valid actor is required"),
	})
}

func abortBadRequest(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error: *result.BadRequest(code, message),
	})
}

func abortFailure(c *gin.Context, f *result.Failure) {
	c.AbortWithStatusJSON(httpStatus(f.Status), errorResponse{Error: *f})
}
