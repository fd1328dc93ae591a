package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/loltft/rudefriend/internal/files"
	"github.com/loltft/rudefriend/internal/hash"
	"github.com/loltft/rudefriend/internal/models"
	"github.com/loltft/rudefriend/internal/token"
)

var testSecret = []byte("test-secret")

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Member{}, &models.GameAccountInfo{}, &models.AnonymousMember{},
		&models.Board{}, &models.BoardTag{}, &models.VoteItem{},
		&models.Vote{}, &models.VoteSummary{}, &models.SaveFile{},
	))
	return db
}

func seedMember(t *testing.T, db *gorm.DB, memberID, password string, role models.Role) *models.Member {
	t.Helper()
	encoded, err := hash.HashPassword(password)
	require.NoError(t, err)
	m := &models.Member{
		ID:       uuid.New(),
		MemberID: memberID,
		Password: encoded,
		Status:   true,
		Role:     role,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func jsonContext(t *testing.T, e *echo.Echo, method, path string, payload interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// multipartContext builds a form request the board endpoints accept.
// values maps field names to one or more values; fileNames maps upload
// names to their content.
func multipartContext(t *testing.T, e *echo.Echo, method, path string, values map[string][]string, fileNames map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, vals := range values {
		for _, v := range vals {
			require.NoError(t, w.WriteField(field, v))
		}
	}
	for name, content := range fileNames {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func asMember(c echo.Context, m *models.Member) {
	SetPrincipal(c, m.MemberID, m.ID, m.Role)
}

func newBoardHandler(t *testing.T, db *gorm.DB) *BoardHandler {
	t.Helper()
	return &BoardHandler{
		DB:    db,
		Files: &files.FileService{DB: db, Store: files.NewLocalStore(t.TempDir())},
	}
}

func newCodecAndHasher() (*token.Codec, *token.Hasher) {
	return token.NewCodec(testSecret), token.NewHasher(testSecret)
}
