package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/loltft/rudefriend/internal/models"
)

func TestMemberCreate(t *testing.T) {
	db := initTestDB(t)
	h := &MemberHandler{DB: db}
	e := echo.New()

	c, rec := jsonContext(t, e, http.MethodPost, "/api/member", map[string]interface{}{
		"memberId": "rudefriend01",
		"password":  "hunter2",
		"name":      "Yuna",
		"game_account_info": map[string]interface{}{
			"game_name": "Riven",
			"tag_line":  "0001",
			"lol_tier":  "GOLD",
		},
	})
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Member
	require.NoError(t, db.Preload("GameAccountInfo").First(&stored, "member_id = ?", "rudefriend01").Error)
	require.Equal(t, models.RoleUser, stored.Role)
	require.True(t, stored.Status)
	require.NotEqual(t, "hunter2", stored.Password)
	require.NotNil(t, stored.GameAccountInfo)
	require.Equal(t, "Riven", stored.GameAccountInfo.GameName)
	require.NotNil(t, stored.GameAccountInfo.LOLTier)
	require.Equal(t, models.TierGold, *stored.GameAccountInfo.LOLTier)

	// duplicate login id is rejected
	c2, rec2 := jsonContext(t, e, http.MethodPost, "/api/member", map[string]interface{}{
		"memberId": "rudefriend01",
		"password":  "other",
	})
	require.NoError(t, h.Create(c2))
	require.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestMemberCreateRejectsBadTier(t *testing.T) {
	h := &MemberHandler{DB: initTestDB(t)}
	e := echo.New()

	c, rec := jsonContext(t, e, http.MethodPost, "/api/member", map[string]interface{}{
		"memberId": "rudefriend01",
		"password":  "hunter2",
		"game_account_info": map[string]interface{}{
			"game_name": "Riven",
			"tag_line":  "0001",
			"lol_tier":  "WOOD",
		},
	})
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemberDetailNotFound(t *testing.T) {
	h := &MemberHandler{DB: initTestDB(t)}
	e := echo.New()

	c, rec := jsonContext(t, e, http.MethodGet, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues("019748f2-0000-7000-8000-000000000000")
	require.NoError(t, h.Detail(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMemberUpdateAuthorization(t *testing.T) {
	db := initTestDB(t)
	h := &MemberHandler{DB: db}
	e := echo.New()

	target := seedMember(t, db, "target", "pw", models.RoleUser)
	other := seedMember(t, db, "other", "pw", models.RoleUser)
	admin := seedMember(t, db, "admin", "pw", models.RoleAdmin)

	update := func(as *models.Member, name string) int {
		c, rec := jsonContext(t, e, http.MethodPut, "/", map[string]string{"name": name})
		c.SetParamNames("id")
		c.SetParamValues(target.ID.String())
		asMember(c, as)
		require.NoError(t, h.Update(c))
		return rec.Code
	}

	require.Equal(t, http.StatusForbidden, update(other, "nope"))
	require.Equal(t, http.StatusOK, update(target, "self-edit"))
	require.Equal(t, http.StatusOK, update(admin, "admin-edit"))

	var stored models.Member
	require.NoError(t, db.First(&stored, "id = ?", target.ID).Error)
	require.NotNil(t, stored.Name)
	require.Equal(t, "admin-edit", *stored.Name)
}

func TestMemberToggleStatusClearsSession(t *testing.T) {
	db := initTestDB(t)
	h := &MemberHandler{DB: db}
	e := echo.New()

	member := seedMember(t, db, "rudefriend01", "pw", models.RoleUser)
	hashed := "stored-hash"
	require.NoError(t, db.Model(member).Update("refresh_token", hashed).Error)

	c, rec := jsonContext(t, e, http.MethodPatch, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(member.ID.String())
	require.NoError(t, h.ToggleStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Member
	require.NoError(t, db.First(&stored, "id = ?", member.ID).Error)
	require.False(t, stored.Status)
	require.Nil(t, stored.RefreshToken)

	// toggling back re-enables without restoring the session
	c2, rec2 := jsonContext(t, e, http.MethodPatch, "/", nil)
	c2.SetParamNames("id")
	c2.SetParamValues(member.ID.String())
	require.NoError(t, h.ToggleStatus(c2))
	require.Equal(t, http.StatusOK, rec2.Code)

	require.NoError(t, db.First(&stored, "id = ?", member.ID).Error)
	require.True(t, stored.Status)
	require.Nil(t, stored.RefreshToken)
}

func TestMemberListAndTotal(t *testing.T) {
	db := initTestDB(t)
	h := &MemberHandler{DB: db}
	e := echo.New()

	seedMember(t, db, "alpha", "pw", models.RoleUser)
	seedMember(t, db, "beta", "pw", models.RoleUser)
	seedMember(t, db, "gamma", "pw", models.RoleAdmin)

	c, rec := jsonContext(t, e, http.MethodGet, "/api/member?role=USER", nil)
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.Len(t, resp.Data, 2)

	c2, rec2 := jsonContext(t, e, http.MethodGet, "/api/member/total?role=USER", nil)
	require.NoError(t, h.Total(c2))
	require.Equal(t, http.StatusOK, rec2.Code)

	c3, rec3 := jsonContext(t, e, http.MethodGet, "/api/member?role=NOPE", nil)
	require.NoError(t, h.List(c3))
	require.Equal(t, http.StatusBadRequest, rec3.Code)
}

func TestMemberListRejectsBadBooleans(t *testing.T) {
	db := initTestDB(t)
	h := &MemberHandler{DB: db}
	e := echo.New()

	seedMember(t, db, "alpha", "pw", models.RoleUser)

	for _, query := range []string{"status=banana", "hasGameInfo=banana"} {
		c, rec := jsonContext(t, e, http.MethodGet, "/api/member?"+query, nil)
		require.NoError(t, h.List(c))
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
	}

	// ParseBool accepts the usual spellings
	for _, query := range []string{"status=true", "status=1", "status=True"} {
		c, rec := jsonContext(t, e, http.MethodGet, "/api/member?"+query, nil)
		require.NoError(t, h.List(c))
		require.Equal(t, http.StatusOK, rec.Code, query)
		require.Len(t, decodeResponse(t, rec).Data, 1, query)
	}
}

func TestMemberListPageNoParam(t *testing.T) {
	db := initTestDB(t)
	h := &MemberHandler{DB: db}
	e := echo.New()

	for i := 0; i < 25; i++ {
		seedMember(t, db, fmt.Sprintf("member%02d", i), "pw", models.RoleUser)
	}

	c, rec := jsonContext(t, e, http.MethodGet, "/api/member?pageNo=2", nil)
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeResponse(t, rec).Data, 5)

	// a missing or bad pageNo falls back to the first page
	c2, rec2 := jsonContext(t, e, http.MethodGet, "/api/member", nil)
	require.NoError(t, h.List(c2))
	require.Len(t, decodeResponse(t, rec2).Data, 20)
}

func TestMemberListTierOptionParam(t *testing.T) {
	db := initTestDB(t)
	h := &MemberHandler{DB: db}
	e := echo.New()

	gold := models.TierGold
	iron := models.TierIron
	attach := func(m *models.Member, info models.GameAccountInfo) {
		info.ID = uuid.New()
		require.NoError(t, db.Create(&info).Error)
		require.NoError(t, db.Model(m).Update("game_account_info_id", info.ID).Error)
	}
	attach(seedMember(t, db, "goldie", "pw", models.RoleUser),
		models.GameAccountInfo{GameName: "Goldie", TagLine: "0001", LOLTier: &gold})
	attach(seedMember(t, db, "irony", "pw", models.RoleUser),
		models.GameAccountInfo{GameName: "Irony", TagLine: "0002", LOLTier: &iron})

	// the mode selector rides the option query param
	c, rec := jsonContext(t, e, http.MethodGet, "/api/member?option=LOL&tier=GOLD&filterMode=EQUAL", nil)
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeResponse(t, rec).Data, 1)

	// a tier filter without a game mode is rejected
	c2, rec2 := jsonContext(t, e, http.MethodGet, "/api/member?tier=GOLD", nil)
	require.NoError(t, h.List(c2))
	require.Equal(t, http.StatusBadRequest, rec2.Code)
}
