package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/greenmate/plantcare/internal/services"
	"github.com/greenmate/plantcare/internal/utils"
)

type fieldError struct {
	Field       string `json:"field"`
	Requirement string `json:"requirement"`
}

type codeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeValidationError(c *gin.Context, ve *services.ValidationError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   fieldError{Field: ve.Field, Requirement: ve.Requirement},
	})
}

func writeError(c *gin.Context, err error) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		writeValidationError(c, ve)
		return
	}

	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, gin.H{
			"success": false,
			"error":   codeError{Code: string(ae.Code), Message: ae.Message},
		})
		return
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   codeError{Code: string(utils.CodeInternal), Message: http.StatusText(status)},
	})
}

func queryLimit(c *gin.Context, def, max int) int {
	limit := def
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= max {
			limit = n
		}
	}
	return limit
}
