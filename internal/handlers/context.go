package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/niyahq/niya-backend/internal/platform/apierr"
	"github.com/niyahq/niya-backend/internal/requestdata"
)

// currentUserID reads the authenticated owner id set by the auth middleware.
func currentUserID(c *gin.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, apierr.Unauthorized(fmt.Errorf("not authenticated"))
	}
	return rd.UserID, nil
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apierr.Validation(fmt.Errorf("invalid %s", name))
	}
	return id, nil
}
