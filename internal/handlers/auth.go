package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/loltft/rudefriend/internal/hash"
	"github.com/loltft/rudefriend/internal/models"
	"github.com/loltft/rudefriend/internal/mykafka"
	"github.com/loltft/rudefriend/internal/token"
)

// messageBadCredentials is shared by the wrong-id and wrong-password paths
// so the response never tells which one failed.
const messageBadCredentials = "invalid member id or password"

type AuthHandler struct {
	DB       *gorm.DB
	Codec    *token.Codec
	Hasher   *token.Hasher
	Producer *mykafka.Producer
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		MemberID string `json:"memberId"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "malformed request")
	}

	access, err := h.Codec.IssueAccess(req.MemberID)
	if err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}
	refresh, err := h.Codec.IssueRefresh()
	if err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}
	hashed, err := h.Hasher.Hash(refresh)
	if err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	var member models.Member
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("GameAccountInfo").Where("member_id = ?", req.MemberID).First(&member).Error; err != nil {
			return err
		}
		if !hash.CheckPassword(member.Password, req.Password) {
			return gorm.ErrRecordNotFound
		}
		if !member.Status {
			return errDisabled
		}
		member.UpdateRefreshToken(&hashed)
		return tx.Model(&member).Update("refresh_token", hashed).Error
	})
	switch {
	case errors.Is(txErr, gorm.ErrRecordNotFound):
		return Fail(c, http.StatusUnauthorized, messageBadCredentials)
	case errors.Is(txErr, errDisabled):
		return Fail(c, http.StatusUnauthorized, "account disabled")
	case txErr != nil:
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	c.Response().Header().Set(AccessTokenHeader, access)
	c.SetCookie(CreateCookie(RefreshTokenCookie, refresh, "/", int(token.RefreshTTL/time.Second)))

	h.publishMemberEvent(c, "logged_in", &member)
	return OK(c, "login success", member)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	memberID := PrincipalID(c)
	if memberID == "" {
		return Fail(c, http.StatusForbidden, "access denied")
	}

	// clearing an already-null hash is a no-op, logout stays idempotent
	if err := h.DB.Model(&models.Member{}).
		Where("member_id = ?", memberID).
		Update("refresh_token", nil).Error; err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	c.SetCookie(CreateCookie(RefreshTokenCookie, "", "/", -1))

	h.publishMemberEvent(c, "logged_out", &models.Member{MemberID: memberID})
	return OK(c, "logout success", nil)
}

var errDisabled = errors.New("account disabled")

func (h *AuthHandler) publishMemberEvent(c echo.Context, eventType string, m *models.Member) {
	event := map[string]interface{}{
		"type":      eventType,
		"member_id": m.MemberID,
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "member_events", m.MemberID, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}
