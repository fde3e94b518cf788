package server_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/book-expert/yukkuri-service/internal/talk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contentTypeForm = "application/x-www-form-urlencoded"

const dispositionPattern = `^attachment; filename="yukkuri-\d{20}\.wav"$`

func postTalk(t *testing.T, rig *testRig, contentType string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/talk", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, req)

	return rec
}

func assertWAVResponse(t *testing.T, rec *httptest.ResponseRecorder, expectedBody string) {
	t.Helper()

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Regexp(t, dispositionPattern, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, strconv.Itoa(len(expectedBody)), rec.Header().Get("Content-Length"))
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.Equal(t, expectedBody, rec.Body.String())
}

func TestCheckLicenses(t *testing.T) {
	t.Parallel()

	rig := setupRouter(t, mockLicenses{"usr_key": true, "dev_key": false}, 1024)

	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check_licenses?verbose=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=UTF-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, strconv.Itoa(rec.Body.Len()), rec.Header().Get("Content-Length"))
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.JSONEq(t, `{"usr_key": true, "dev_key": false}`, rec.Body.String())
}

func TestCheckLicenses_Empty(t *testing.T) {
	t.Parallel()

	rig := setupRouter(t, mockLicenses{}, 1024)

	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check_licenses", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestTalk_URLEncoded(t *testing.T) {
	t.Parallel()

	rig := setupRouter(t, mockLicenses{}, 1024)

	form := url.Values{"text": {"ゆっくりしていってね"}, "spd": {"120"}, "vol": {""}, "voice": {"x"}}
	rec := postTalk(t, rig, contentTypeForm, form.Encode())

	assertWAVResponse(t, rec, "RIFF0000WAVEkoe:ゆっくりしていってね")
	assert.Equal(t, map[string]int{"spd": 120}, rig.engine.lastParams)
}

func TestTalk_Native(t *testing.T) {
	t.Parallel()

	rig := setupRouter(t, mockLicenses{}, 1024)

	rec := postTalk(t, rig, contentTypeForm, url.Values{"text": {"ゆっくり"}, "native": {"1"}}.Encode())

	assertWAVResponse(t, rec, "RIFF0000WAVEゆっくり")
	assert.Equal(t, 0, rig.engine.conversionCount())
}

func TestTalk_Multipart(t *testing.T) {
	t.Parallel()

	rig := setupRouter(t, mockLicenses{}, 1024)

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("text", "こんにちは"))
	require.NoError(t, writer.WriteField("type", "3"))
	require.NoError(t, writer.Close())

	rec := postTalk(t, rig, writer.FormDataContentType(), body.String())

	assertWAVResponse(t, rec, "RIFF0000WAVEkoe:こんにちは")
	assert.Equal(t, map[string]int{"type": 3}, rig.engine.lastParams)
}

func TestTalk_FallbackCases(t *testing.T) {
	t.Parallel()

	fallbackAudio := "RIFF0000WAVEkoe:" + talk.FallbackPhrase

	testCases := []struct {
		name        string
		contentType string
		body        string
		failConvert bool
	}{
		{name: "missing text", contentType: contentTypeForm, body: "spd=100"},
		{name: "empty text", contentType: contentTypeForm, body: "text="},
		{name: "invalid parameter", contentType: contentTypeForm, body: "text=a&spd=fast"},
		{name: "malformed multipart", contentType: "multipart/form-data", body: "garbage"},
		{name: "body over limit", contentType: contentTypeForm, body: "text=" + strings.Repeat("a", 2048)},
		{name: "conversion failure", contentType: contentTypeForm, body: "text=a", failConvert: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			rig := setupRouter(t, mockLicenses{}, 1024)
			rig.engine.convertShouldFail = testCase.failConvert

			rec := postTalk(t, rig, testCase.contentType, testCase.body)

			assertWAVResponse(t, rec, fallbackAudio)
			assert.Empty(t, rig.engine.lastParams)
		})
	}
}

func TestTalk_FallbackFailure(t *testing.T) {
	t.Parallel()

	rig := setupRouter(t, mockLicenses{}, 1024)
	rig.engine.convertShouldFail = true
	rig.engine.fallbackShouldFail = true

	rec := postTalk(t, rig, contentTypeForm, "text=a")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestStaticFiles(t *testing.T) {
	t.Parallel()

	rig := setupRouter(t, mockLicenses{}, 1024)
	require.NoError(t, os.WriteFile(filepath.Join(rig.docRoot, "main.js"), []byte("console.log(1)"), 0o600))

	rec := httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/main.js?v=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())

	rec = httptest.NewRecorder()
	rig.router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/main.js", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	rig := setupRouter(t, mockLicenses{}, 1024)

	testCases := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/speak"},
		{http.MethodPost, "/check_licenses"},
		{http.MethodPut, "/talk"},
		{http.MethodDelete, "/main.js"},
		{http.MethodGet, "/missing.html"},
	}

	for _, testCase := range testCases {
		rec := httptest.NewRecorder()
		rig.router.ServeHTTP(rec, httptest.NewRequest(testCase.method, testCase.target, nil))

		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", testCase.method, testCase.target)
	}

	assert.Equal(t, 0, rig.engine.conversionCount())
}
