package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/loltft/rudefriend/internal/models"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *echo.Echo) {
	t.Helper()
	codec, hasher := newCodecAndHasher()
	return &AuthHandler{DB: initTestDB(t), Codec: codec, Hasher: hasher}, echo.New()
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == RefreshTokenCookie {
			return cookie
		}
	}
	t.Fatal("refresh cookie not set")
	return nil
}

func TestLoginSuccess(t *testing.T) {
	h, e := newAuthHandler(t)
	member := seedMember(t, h.DB, "rudefriend01", "hunter2", models.RoleUser)

	c, rec := jsonContext(t, e, http.MethodPost, "/api/login", map[string]string{
		"memberId": "rudefriend01",
		"password":  "hunter2",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.Equal(t, "success", resp.Status)

	access := rec.Header().Get(AccessTokenHeader)
	require.NotEmpty(t, access)
	id, err := h.Codec.MemberID(access)
	require.NoError(t, err)
	require.Equal(t, "rudefriend01", id)

	cookie := refreshCookie(t, rec)
	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, "/", cookie.Path)
	require.Equal(t, 172800, cookie.MaxAge)

	// only the keyed hash of the refresh token lands in the database
	hashed, err := h.Hasher.Hash(cookie.Value)
	require.NoError(t, err)
	var stored models.Member
	require.NoError(t, h.DB.First(&stored, "id = ?", member.ID).Error)
	require.NotNil(t, stored.RefreshToken)
	require.Equal(t, hashed, *stored.RefreshToken)
}

func TestLoginBadCredentialsUniformMessage(t *testing.T) {
	h, e := newAuthHandler(t)
	seedMember(t, h.DB, "rudefriend01", "hunter2", models.RoleUser)

	c1, rec1 := jsonContext(t, e, http.MethodPost, "/api/login", map[string]string{
		"memberId": "no-such-member",
		"password":  "hunter2",
	})
	require.NoError(t, h.Login(c1))
	require.Equal(t, http.StatusUnauthorized, rec1.Code)

	c2, rec2 := jsonContext(t, e, http.MethodPost, "/api/login", map[string]string{
		"memberId": "rudefriend01",
		"password":  "wrong",
	})
	require.NoError(t, h.Login(c2))
	require.Equal(t, http.StatusUnauthorized, rec2.Code)

	// neither response may tell which field was wrong
	require.Equal(t, decodeResponse(t, rec1).Message, decodeResponse(t, rec2).Message)
}

func TestLoginDisabledAccount(t *testing.T) {
	h, e := newAuthHandler(t)
	member := seedMember(t, h.DB, "rudefriend01", "hunter2", models.RoleUser)
	require.NoError(t, h.DB.Model(member).Update("status", false).Error)

	c, rec := jsonContext(t, e, http.MethodPost, "/api/login", map[string]string{
		"memberId": "rudefriend01",
		"password":  "hunter2",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "account disabled", decodeResponse(t, rec).Message)
}

func TestLogoutClearsHashAndIsIdempotent(t *testing.T) {
	h, e := newAuthHandler(t)
	member := seedMember(t, h.DB, "rudefriend01", "hunter2", models.RoleUser)
	hashed := "stored-hash"
	require.NoError(t, h.DB.Model(member).Update("refresh_token", hashed).Error)

	logout := func() *Response {
		c, rec := jsonContext(t, e, http.MethodPatch, "/api/logout", nil)
		asMember(c, member)
		require.NoError(t, h.Logout(c))
		require.Equal(t, http.StatusOK, rec.Code)

		cookie := refreshCookie(t, rec)
		require.Empty(t, cookie.Value)
		require.Less(t, cookie.MaxAge, 0)

		resp := decodeResponse(t, rec)
		return &resp
	}

	logout()
	var stored models.Member
	require.NoError(t, h.DB.First(&stored, "id = ?", member.ID).Error)
	require.Nil(t, stored.RefreshToken)

	// a second logout with the hash already gone still succeeds
	logout()
	require.NoError(t, h.DB.First(&stored, "id = ?", member.ID).Error)
	require.Nil(t, stored.RefreshToken)
}

func TestLogoutWithoutPrincipal(t *testing.T) {
	h, e := newAuthHandler(t)

	c, rec := jsonContext(t, e, http.MethodPatch, "/api/logout", nil)
	require.NoError(t, h.Logout(c))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
