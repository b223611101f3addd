package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/niyahq/niya-backend/internal/platform/apierr"
)

type Envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, Envelope{Status: "success", Data: payload})
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, Envelope{Status: "success", Data: payload})
}

func RespondAccepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, Envelope{Status: "success", Data: payload})
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondError is the single place a service error becomes an HTTP body.
// Unrecognized errors surface as INTERNAL_ERROR without leaking the message.
func RespondError(c *gin.Context, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		msg := "unknown error"
		if apiErr.Err != nil {
			msg = apiErr.Err.Error()
		}
		status := apiErr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, Envelope{Status: "error", Message: msg, Code: apiErr.Code})
		return
	}
	c.JSON(http.StatusInternalServerError, Envelope{
		Status:  "error",
		Message: "internal server error",
		Code:    apierr.CodeInternal,
	})
}
