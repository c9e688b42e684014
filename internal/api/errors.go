package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{Code: code, Message: message}
}

func (e apiError) Error() string { return e.Message }

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newInternalError(message string) apiError {
	return newAPIError(http.StatusInternalServerError, message)
}
