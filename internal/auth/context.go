package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/ea-backend/internal/users"
)

const (
	CtxUser     = "user"
	CtxUserDBID = "user_db_id"
)

// CurrentUser returns the user set by WithUser, or nil.
func CurrentUser(c *gin.Context) *users.User {
	v, ok := c.Get(CtxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*users.User)
	return u
}

func UserDBID(c *gin.Context) string {
	return c.GetString(CtxUserDBID)
}

// Actor names the caller in audit entries.
func Actor(c *gin.Context) string {
	if u := CurrentUser(c); u != nil {
		return u.ExternalID
	}
	return "anonymous"
}
