package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tresinky/gallery/database/dbtest"
	"github.com/tresinky/gallery/media"
	"github.com/tresinky/gallery/realtime"
	"github.com/tresinky/gallery/services"
	"github.com/tresinky/gallery/synchronizer"
)

const testAdminKey = "correct horse battery staple"

type copyConverter struct {
	fs      afero.Fs
	missing bool
}

func (c *copyConverter) Available() error {
	if c.missing {
		return media.ErrConverterMissing
	}
	return nil
}

func (c *copyConverter) Convert(_ context.Context, src, dst string) error {
	data, err := afero.ReadFile(c.fs, src)
	if err != nil {
		return err
	}
	return afero.WriteFile(c.fs, dst, data, 0644)
}

type testServer struct {
	handler   http.Handler
	fs        afero.Fs
	converter *copyConverter
	hub       *realtime.Hub
}

func newTestServer(t *testing.T, keyHash string) *testServer {
	t.Helper()
	fs := afero.NewMemMapFs()
	db := dbtest.Open(t)
	store, err := media.NewStore(fs, "/srv/static", "images/gallery")
	require.NoError(t, err)
	conv := &copyConverter{fs: fs}
	hub := realtime.NewHub(realtime.DefaultBufferSize)
	svc := services.NewGalleryService(db, store, media.NewProcessor(store, conv),
		synchronizer.New(db, store, nil), hub, nil, 600)

	h := NewRouter(RouterDeps{
		DB:             db,
		Service:        svc,
		Hub:            hub,
		Converter:      conv,
		StaticFs:       fs,
		StaticRoot:     store.StaticRoot(),
		AdminKeyHash:   keyHash,
		AllowedOrigins: []string{"http://localhost:5173"},
		MaxUploadBytes: 1 << 20,
	})
	return &testServer{handler: h, fs: fs, converter: conv, hub: hub}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/gallery/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (s *testServer) upload(t *testing.T, album, filename string) services.UploadResult {
	t.Helper()
	rec := s.do(t, uploadRequest(t, filename, "pixels", map[string]string{"album": album}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res services.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func (s *testServer) images(t *testing.T, album string) []map[string]interface{} {
	t.Helper()
	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery/images?album="+url.QueryEscape(album), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUpload_Success(t *testing.T) {
	s := newTestServer(t, "")
	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	res := s.upload(t, "Léto 2024", "Třešinky.jpg")
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Filename, "Tresinky_"))
	assert.Equal(t, "File uploaded successfully", res.Message)

	first := <-sub.C
	second := <-sub.C
	assert.Equal(t, realtime.StatusProcessing, first.Status)
	assert.Equal(t, realtime.StatusCompleted, second.Status)
	assert.Equal(t, res.Filename, second.Filename)

	imgs := s.images(t, "Leto 2024")
	require.Len(t, imgs, 1)
	assert.Contains(t, imgs[0]["filename"], "images/gallery/Leto 2024/Tresinky_")
}

func TestUpload_Failures(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		fields     map[string]string
		missing    bool
		wantStatus int
		wantError  string
	}{
		{"no file", "", map[string]string{"album": "A"}, false, http.StatusBadRequest, "No file selected"},
		{"hidden", ".secret.jpg", map[string]string{"album": "A"}, false, http.StatusBadRequest, "Hidden files are not supported"},
		{"no album", "a.jpg", nil, false, http.StatusBadRequest, "No album specified"},
		{"converter missing", "a.jpg", map[string]string{"album": "A"}, true, http.StatusServiceUnavailable, "Image converter is not installed on the server"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, "")
			s.converter.missing = tt.missing

			rec := s.do(t, uploadRequest(t, tt.filename, "x", tt.fields))
			assert.Equal(t, tt.wantStatus, rec.Code)
			var res services.UploadResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.False(t, res.Success)
			assert.Equal(t, tt.wantError, res.Error)
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	s := newTestServer(t, "")
	rec := s.do(t, uploadRequest(t, "big.jpg", strings.Repeat("x", 2<<20), map[string]string{"album": "A"}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAdminKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminKey), bcrypt.MinCost)
	require.NoError(t, err)
	s := newTestServer(t, string(hash))

	rec := s.do(t, uploadRequest(t, "a.jpg", "x", map[string]string{"album": "A"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := uploadRequest(t, "a.jpg", "x", map[string]string{"album": "A"})
	req.Header.Set(AdminKeyHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, s.do(t, req).Code)

	req = uploadRequest(t, "a.jpg", "x", map[string]string{"album": "A"})
	req.Header.Set(AdminKeyHeader, testAdminKey)
	assert.Equal(t, http.StatusOK, s.do(t, req).Code)

	// reads stay open
	assert.Equal(t, http.StatusOK, s.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery/folders", nil)).Code)
}

func TestEditAndDeleteImage(t *testing.T) {
	s := newTestServer(t, "")
	s.upload(t, "A", "a.jpg")
	imgs := s.images(t, "A")
	require.Len(t, imgs, 1)
	id := int(imgs[0]["id"].(float64))
	idPath := "/api/gallery/images/" + strconv.Itoa(id)

	rec := s.do(t, httptest.NewRequest(http.MethodPut, idPath, strings.NewReader(`{"title":"Nový","album":"B"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var edited map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edited))
	assert.Equal(t, "Nový", edited["title"])
	assert.Contains(t, edited["filename"], "images/gallery/B/")

	rec = s.do(t, httptest.NewRequest(http.MethodPut, idPath, strings.NewReader(`{"album":"..."}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodDelete, idPath, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodDelete, idPath, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/gallery/images/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListImages_Validation(t *testing.T) {
	s := newTestServer(t, "")
	assert.Equal(t, http.StatusBadRequest, s.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery/images", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery/images?album=A&sort=random", nil)).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery/images?album=A", nil)).Code)
}

func TestFoldersAndAlbums(t *testing.T) {
	s := newTestServer(t, "")
	s.upload(t, "Jaro 2023", "a.jpg")
	s.upload(t, "Podzim 2023", "b.jpg")

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery/folders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var folders []services.Folder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &folders))
	require.Len(t, folders, 2)
	assert.Equal(t, "Podzim 2023", folders[0].Name)
	assert.True(t, strings.HasPrefix(folders[0].CoverImage, "/static/images/gallery/Podzim 2023/"))

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/albums", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var albums []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &albums))
	require.Len(t, albums, 2)
	id := int(albums[0]["album_id"].(float64))

	rec = s.do(t, httptest.NewRequest(http.MethodPut, "/api/albums/"+strconv.Itoa(id), strings.NewReader(`{"display_name":"Jaro 2023 – hory"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Jaro 2023 – hory")

	rec = s.do(t, httptest.NewRequest(http.MethodPut, "/api/albums/9999", strings.NewReader(`{"display_name":"x"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, httptest.NewRequest(http.MethodPut, "/api/albums/"+strconv.Itoa(id), strings.NewReader(`{"display_name":" "}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncAndStatic(t *testing.T) {
	s := newTestServer(t, "")
	res := s.upload(t, "A", "a.jpg")

	name := strings.TrimSuffix(res.Filename, ".jpg") + ".webp"
	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/static/images/gallery/A/"+name, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pixels", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Cache-Control"))

	assert.Equal(t, http.StatusNotFound, s.do(t, httptest.NewRequest(http.MethodGet, "/static/images/gallery/A/missing.webp", nil)).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, httptest.NewRequest(http.MethodGet, "/static/images/gallery/A", nil)).Code)

	require.NoError(t, s.fs.Remove("/srv/static/images/gallery/A/"+name))
	rec = s.do(t, httptest.NewRequest(http.MethodPost, "/api/gallery/sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var report synchronizer.SyncReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.EqualValues(t, 1, report.DeletedImages)
	assert.EqualValues(t, 1, report.DeletedAlbums)
}

func TestCover(t *testing.T) {
	s := newTestServer(t, "")
	s.upload(t, "A", "a.jpg")

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery/covers/A", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0xff, 0xd8}))

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/gallery/covers/Nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "")
	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	s.converter.missing = true
	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestWriteAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAPIError(rec, http.StatusConflict, "DestinationExists", "already there")

	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "409", body.Errors[0].Status)
	assert.Equal(t, "DestinationExists", body.Errors[0].Code)
}
