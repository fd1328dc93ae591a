package service

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/loltft/rudefriend/internal/handlers"
	"github.com/loltft/rudefriend/internal/models"
	"github.com/loltft/rudefriend/internal/token"
	"github.com/loltft/rudefriend/internal/util"
)

// TokenService resolves the caller's identity on every request. A valid
// access token passes through untouched; an expired or absent one triggers
// the refresh flow: the refresh cookie is validated, its keyed hash looked
// up against the member table, and a fresh access token is written to the
// AccessToken response header while the request continues. The refresh
// token itself is never re-issued, its original expiry stands.
type TokenService struct {
	DB     *gorm.DB
	Codec  *token.Codec
	Hasher *token.Hasher
}

func (t *TokenService) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c)
		if raw != "" {
			memberID, err := t.Codec.MemberID(raw)
			if err == nil {
				return t.continueAs(c, next, memberID)
			}
			if !errors.Is(err, token.ErrTokenExpired) {
				return handlers.Fail(c, http.StatusUnauthorized, "invalid access token")
			}
		}

		cookie, err := c.Cookie(handlers.RefreshTokenCookie)
		if err != nil || cookie.Value == "" {
			return t.continueAnonymous(c, next)
		}

		if sub, err := t.Codec.Subject(cookie.Value); err != nil || sub != token.SubjectRefresh {
			return handlers.Fail(c, http.StatusUnauthorized, "invalid refresh token")
		}

		hashed, err := t.Hasher.Hash(cookie.Value)
		if err != nil {
			return handlers.Fail(c, http.StatusUnauthorized, "invalid refresh token")
		}

		var member models.Member
		if err := t.DB.Where("refresh_token = ?", hashed).First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return handlers.Fail(c, http.StatusUnauthorized, "refresh token not recognized")
			}
			return handlers.Fail(c, http.StatusInternalServerError, "unexpected error")
		}
		if !member.Status {
			return handlers.Fail(c, http.StatusUnauthorized, "account disabled")
		}

		newAccess, err := t.Codec.IssueAccess(member.MemberID)
		if err != nil {
			return handlers.Fail(c, http.StatusInternalServerError, "unexpected error")
		}
		c.Response().Header().Set(handlers.AccessTokenHeader, newAccess)

		handlers.SetPrincipal(c, member.MemberID, member.ID, member.Role)
		return next(c)
	}
}

// RequireMember rejects anonymous callers.
func (t *TokenService) RequireMember(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if handlers.PrincipalID(c) == "" || handlers.PrincipalRole(c) == models.RoleAnonymous {
			return handlers.Fail(c, http.StatusForbidden, "access denied")
		}
		return next(c)
	}
}

// RequireAdmin allows only ADMIN and SUPER callers.
func (t *TokenService) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch handlers.PrincipalRole(c) {
		case models.RoleAdmin, models.RoleSuper:
			return next(c)
		}
		return handlers.Fail(c, http.StatusForbidden, "access denied")
	}
}

func (t *TokenService) continueAs(c echo.Context, next echo.HandlerFunc, memberID string) error {
	var member models.Member
	if err := t.DB.Where("member_id = ?", memberID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return handlers.Fail(c, http.StatusUnauthorized, "invalid access token")
		}
		return handlers.Fail(c, http.StatusInternalServerError, "unexpected error")
	}
	if !member.Status {
		return handlers.Fail(c, http.StatusUnauthorized, "account disabled")
	}
	handlers.SetPrincipal(c, member.MemberID, member.ID, member.Role)
	return next(c)
}

// continueAnonymous records the caller's IP once and lets the request pass
// without an identity. Endpoint policy decides whether that is enough.
func (t *TokenService) continueAnonymous(c echo.Context, next echo.HandlerFunc) error {
	ip := util.ClientIP(c.Request())
	anon := models.AnonymousMember{ID: uuid.New(), IPAddress: ip}
	if err := t.DB.Where("ip_address = ?", ip).FirstOrCreate(&anon).Error; err != nil {
		c.Logger().Errorf("anonymous member record failed: %v", err)
	}
	handlers.SetPrincipal(c, "", nil, models.RoleAnonymous)
	return next(c)
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if h == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
