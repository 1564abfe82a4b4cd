package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	// Mock
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"cmr_stac_url: https://stac.example.localdomain\n"+
			"port: \"9000\"\n"+
			"model_server_url: http://model.example.localdomain\n"+
			"sync_frequency: 2h\n"+
			"output_bucket: gs://burn-scars/animations\n"), 0600))
	t.Setenv(PORT, "9100")

	// Tested code
	cfg, err := LoadConfig(path)

	// Asserts
	require.NoError(t, err)
	assert.Equal(t, "https://stac.example.localdomain", cfg.CMRSTACURL)
	assert.Equal(t, ":9100", cfg.PortStr())
	assert.Equal(t, "http://model.example.localdomain", cfg.ModelServerURL)
	assert.Equal(t, 2*time.Hour, cfg.SyncFrequency)
	assert.Equal(t, defaultFFmpegPath, cfg.FFmpegPath)
	assert.Equal(t, "gs://burn-scars/animations", cfg.OutputBucket)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, defaultCMRSTACURL, cfg.CMRSTACURL)
	assert.Equal(t, defaultSyncFrequency, cfg.SyncFrequency)
	assert.Equal(t, defaultEEProject, cfg.EEProject)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, missingErr := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, IsKind(missingErr, Configuration))

	t.Setenv(SYNC_FREQUENCY, "often")
	_, freqErr := LoadConfig("")
	assert.True(t, IsKind(freqErr, Configuration))
}

func TestIsKind(t *testing.T) {
	base := NewError(Authentication, "bad login")
	wrapped := fmt.Errorf("while searching: %w", base)

	assert.True(t, IsKind(wrapped, Authentication))
	assert.False(t, IsKind(wrapped, DataAccess))
	assert.True(t, IsKind(HTTPErr{Status: 404, Message: "gone"}, DataAccess))
	assert.False(t, IsKind(errors.New("plain"), Configuration))
	assert.Nil(t, WrapError(DataAccess, nil))
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusForError(fmt.Errorf("x: %w", HTTPErr{Status: 404})))
	assert.Equal(t, http.StatusBadRequest, StatusForError(NewError(Configuration, "bad")))
	assert.Equal(t, http.StatusUnauthorized, StatusForError(NewError(Authentication, "bad")))
	assert.Equal(t, http.StatusBadGateway, StatusForError(NewError(DataAccess, "bad")))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(errors.New("bad")))
}

func TestEarthdataCredentials(t *testing.T) {
	// Mock
	dir := t.TempDir()
	good := filepath.Join(dir, "good")
	require.NoError(t, os.WriteFile(good, []byte("machine urs.earthdata.nasa.gov login alice password secret\n"), 0600))
	other := filepath.Join(dir, "other")
	require.NoError(t, os.WriteFile(other, []byte("machine example.com login bob password pw\n"), 0600))

	// Tested code
	creds, err := EarthdataCredentials(&BasicLogContext{}, good)
	_, otherErr := EarthdataCredentials(&BasicLogContext{}, other)
	_, missingErr := EarthdataCredentials(&BasicLogContext{}, filepath.Join(dir, "missing"))

	// Asserts
	require.NoError(t, err)
	assert.Equal(t, "alice", creds.Login)
	assert.Equal(t, "secret", creds.Password)
	assert.True(t, IsKind(otherErr, Authentication))
	assert.True(t, IsKind(missingErr, Authentication))
}

func TestReqByObjJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusTeapot)
			w.Write([]byte("short and stout"))
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"answer":42}`))
	}))
	defer server.Close()

	var out struct {
		Answer int `json:"answer"`
	}
	status, err := ReqByObjJSON("POST", server.URL+"/ok", "", map[string]string{"q": "life"}, &out)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 42, out.Answer)

	status, err = ReqByObjJSON("GET", server.URL+"/fail", "", nil, nil)
	assert.Equal(t, http.StatusTeapot, status)
	assert.Equal(t, HTTPErr{Status: http.StatusTeapot, Message: "short and stout"}, err)
}

func TestReqByObj(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	data, status, err := ReqByObj(context.Background(), server.Client(), "POST", server.URL+"/pixels", "", map[string]int{"width": 2})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	_, status, err = ReqByObj(context.Background(), server.Client(), "POST", server.URL+"/fail", "", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.True(t, IsKind(err, DataAccess))
}

func TestLogSimpleErr(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)

	err := LogSimpleErr(&BasicLogContext{}, "Failed to do the thing.", errors.New("boom"))

	assert.EqualError(t, err, "Failed to do the thing. boom")
	assert.Contains(t, buf.String(), "Failed to do the thing.")
	assert.Contains(t, buf.String(), `"app":"hls-broker"`)
}
