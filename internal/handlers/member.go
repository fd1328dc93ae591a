package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/loltft/rudefriend/internal/hash"
	"github.com/loltft/rudefriend/internal/models"
	"github.com/loltft/rudefriend/internal/mykafka"
	"github.com/loltft/rudefriend/internal/repository"
	"github.com/loltft/rudefriend/internal/util"
)

type MemberHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

type gameAccountRequest struct {
	GameName     string  `json:"game_name"`
	TagLine      string  `json:"tag_line"`
	IconURL      string  `json:"icon_url"`
	LOLTier      *string `json:"lol_tier"`
	FlexTier     *string `json:"flex_tier"`
	TFTTier      *string `json:"tft_tier"`
	DoubleUpTier *string `json:"double_up_tier"`
}

func (r *gameAccountRequest) toModel() (*models.GameAccountInfo, error) {
	info := &models.GameAccountInfo{
		ID:       uuid.New(),
		GameName: r.GameName,
		TagLine:  r.TagLine,
		IconURL:  r.IconURL,
	}
	for _, pair := range []struct {
		raw **string
		dst **models.Tier
	}{
		{&r.LOLTier, &info.LOLTier},
		{&r.FlexTier, &info.FlexTier},
		{&r.TFTTier, &info.TFTTier},
		{&r.DoubleUpTier, &info.DoubleUpTier},
	} {
		if *pair.raw == nil {
			continue
		}
		tier, err := models.ParseTier(**pair.raw)
		if err != nil {
			return nil, err
		}
		*pair.dst = &tier
	}
	return info, nil
}

func (h *MemberHandler) Create(c echo.Context) error {
	var req struct {
		MemberID        string              `json:"memberId"`
		Password        string              `json:"password"`
		Name            *string             `json:"name"`
		GameAccountInfo *gameAccountRequest `json:"game_account_info"`
	}
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "malformed request")
	}
	if req.MemberID == "" || req.Password == "" {
		return Fail(c, http.StatusBadRequest, "member_id and password are required")
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	member := models.Member{
		ID:       uuid.New(),
		MemberID: req.MemberID,
		Password: hashed,
		Name:     req.Name,
		Status:   true,
		Role:     models.RoleUser,
	}
	if req.GameAccountInfo != nil {
		info, err := req.GameAccountInfo.toModel()
		if err != nil {
			return Fail(c, http.StatusBadRequest, err.Error())
		}
		member.GameAccountInfo = info
	}

	var existing models.Member
	if err := h.DB.Where("member_id = ?", req.MemberID).First(&existing).Error; err == nil {
		return Fail(c, http.StatusBadRequest, "member already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	if err := h.DB.Create(&member).Error; err != nil {
		return Fail(c, http.StatusBadRequest, "member already exists")
	}

	h.publishMemberEvent(c, "registered", member.MemberID)
	return OK(c, "member created", member)
}

func (h *MemberHandler) List(c echo.Context) error {
	filter, err := memberFilterFromQuery(c)
	if err != nil {
		return Fail(c, http.StatusBadRequest, err.Error())
	}

	q := repository.MemberQuery{DB: h.DB}
	members, err := q.List(*filter, pageParam(c))
	if err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}
	return OK(c, "member list", members)
}

func (h *MemberHandler) Total(c echo.Context) error {
	filter, err := memberFilterFromQuery(c)
	if err != nil {
		return Fail(c, http.StatusBadRequest, err.Error())
	}

	q := repository.MemberQuery{DB: h.DB}
	total, err := q.Count(*filter)
	if err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}
	return OK(c, "member total", map[string]int64{"total": total})
}

func (h *MemberHandler) Detail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Fail(c, http.StatusBadRequest, "invalid member id")
	}

	var member models.Member
	if err := h.DB.Preload("GameAccountInfo").First(&member, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail(c, http.StatusNotFound, "member not found")
		}
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}
	return OK(c, "member detail", member)
}

func (h *MemberHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Fail(c, http.StatusBadRequest, "invalid member id")
	}

	var member models.Member
	if err := h.DB.Preload("GameAccountInfo").First(&member, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail(c, http.StatusNotFound, "member not found")
		}
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	// members edit themselves, admins edit anyone
	if PrincipalID(c) != member.MemberID {
		switch PrincipalRole(c) {
		case models.RoleAdmin, models.RoleSuper:
		default:
			return Fail(c, http.StatusForbidden, "access denied")
		}
	}

	var req struct {
		Name            *string             `json:"name"`
		Password        *string             `json:"password"`
		GameAccountInfo *gameAccountRequest `json:"game_account_info"`
	}
	if err := c.Bind(&req); err != nil {
		return Fail(c, http.StatusBadRequest, "malformed request")
	}

	if req.Name != nil {
		member.Name = req.Name
	}
	if req.Password != nil {
		hashed, err := hash.HashPassword(*req.Password)
		if err != nil {
			return Fail(c, http.StatusInternalServerError, "unexpected error")
		}
		member.Password = hashed
	}
	if req.GameAccountInfo != nil {
		info, err := req.GameAccountInfo.toModel()
		if err != nil {
			return Fail(c, http.StatusBadRequest, err.Error())
		}
		if member.GameAccountInfo != nil {
			info.ID = member.GameAccountInfo.ID
		}
		member.GameAccountInfo = info
	}

	if err := h.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(&member).Error; err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	h.publishMemberEvent(c, "updated", member.MemberID)
	return OK(c, "member updated", member)
}

func (h *MemberHandler) ToggleStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return Fail(c, http.StatusBadRequest, "invalid member id")
	}

	var member models.Member
	if err := h.DB.First(&member, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Fail(c, http.StatusNotFound, "member not found")
		}
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	member.ToggleStatus()
	updates := map[string]interface{}{"status": member.Status}
	if !member.Status {
		// a disabled member loses the live session too
		updates["refresh_token"] = nil
	}
	if err := h.DB.Model(&member).Updates(updates).Error; err != nil {
		return Fail(c, http.StatusInternalServerError, "unexpected error")
	}

	h.publishMemberEvent(c, "status_changed", member.MemberID)
	return OK(c, "member status changed", member)
}

func memberFilterFromQuery(c echo.Context) (*repository.MemberFilter, error) {
	var f repository.MemberFilter
	f.Search = c.QueryParam("search")

	if v := c.QueryParam("status"); v != "" {
		status, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid status %q", v)
		}
		f.Status = &status
	}
	if v := c.QueryParam("role"); v != "" {
		role, err := models.ParseRole(v)
		if err != nil {
			return nil, err
		}
		f.Role = &role
	}

	from, to, err := util.DateRange(c.QueryParam("dateFrom"), c.QueryParam("dateTo"))
	if err != nil {
		return nil, err
	}
	f.DateFrom, f.DateTo = from, to
	if v := c.QueryParam("dateOption"); v != "" {
		opt, err := models.ParseDateOption(v)
		if err != nil {
			return nil, err
		}
		f.DateOption = opt
	}

	if v := c.QueryParam("hasGameInfo"); v != "" {
		has, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid hasGameInfo %q", v)
		}
		f.HasGameInfo = &has
	}
	if v := c.QueryParam("tier"); v != "" {
		tier, err := models.ParseTier(v)
		if err != nil {
			return nil, err
		}
		f.Tier = &tier

		mode, err := models.ParseGameMode(c.QueryParam("option"))
		if err != nil {
			return nil, err
		}
		f.GameMode = mode

		if fm := c.QueryParam("filterMode"); fm != "" {
			parsed, err := models.ParseFilterMode(fm)
			if err != nil {
				return nil, err
			}
			f.FilterMode = parsed
		}
	}
	return &f, nil
}

func (h *MemberHandler) publishMemberEvent(c echo.Context, eventType, memberID string) {
	event := map[string]interface{}{
		"type":      eventType,
		"member_id": memberID,
	}
	if err := h.Producer.PublishEvent(c.Request().Context(), "member_events", memberID, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}
