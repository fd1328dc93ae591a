package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/loltft/rudefriend/internal/models"
)

const (
	AccessTokenHeader  = "AccessToken"
	RefreshTokenCookie = "RefreshToken"

	ctxMemberID = "memberID"
	ctxMemberPK = "memberPK"
	ctxRole     = "role"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Status: "success", Message: message, Data: data})
}

func Fail(c echo.Context, code int, message string) error {
	return c.JSON(code, Response{Status: "fail", Message: message})
}

func CreateCookie(name, value, path string, maxAge int) *http.Cookie {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		cookie.Expires = time.Now().Add(time.Duration(maxAge) * time.Second)
	}
	return cookie
}

// SetPrincipal records the resolved identity on the request context.
func SetPrincipal(c echo.Context, memberID string, pk interface{}, role models.Role) {
	c.Set(ctxMemberID, memberID)
	c.Set(ctxMemberPK, pk)
	c.Set(ctxRole, role)
}

func PrincipalID(c echo.Context) string {
	if v, ok := c.Get(ctxMemberID).(string); ok {
		return v
	}
	return ""
}

func PrincipalRole(c echo.Context) models.Role {
	if v, ok := c.Get(ctxRole).(models.Role); ok {
		return v
	}
	return models.RoleAnonymous
}

func pageParam(c echo.Context) int {
	page, err := strconv.Atoi(c.QueryParam("pageNo"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
