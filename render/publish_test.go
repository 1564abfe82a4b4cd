package render

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Vizzuality/HLS-data-project/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Put(ctx context.Context, name, contentType string, r io.Reader) error {
	data, _ := io.ReadAll(r)
	args := m.Called(name, contentType, string(data))
	return args.Error(0)
}

func (m *mockStore) Close() error {
	return nil
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("gs://burn-scars/maui/2023/")
	require.Nil(t, err)
	assert.Equal(t, Location{Bucket: "burn-scars", Prefix: "maui/2023"}, loc)
	assert.Equal(t, "maui/2023/maui.mp4", loc.Object("/frames/maui/maui.mp4"))
	assert.Equal(t, "gs://burn-scars/maui/2023/maui.mp4", loc.URL(loc.Object("maui.mp4")))

	loc, err = ParseLocation("gs://burn-scars")
	require.Nil(t, err)
	assert.Equal(t, "maui.gif", loc.Object("maui.gif"))

	for _, bad := range []string{"", "s3://bucket", "gs://", "gs:///prefix"} {
		_, err = ParseLocation(bad)
		assert.True(t, util.IsKind(err, util.Configuration), bad)
	}
}

func TestPublish(t *testing.T) {
	// Mock
	dir := t.TempDir()
	gif := filepath.Join(dir, "maui.gif")
	require.Nil(t, os.WriteFile(gif, []byte("GIF89a"), 0644))
	store := &mockStore{}
	store.On("Put", "out/maui.gif", "image/gif", "GIF89a").Return(nil)

	// Tested code
	urls, err := Publish(context.Background(), store, Location{Bucket: "b", Prefix: "out"}, []string{gif}, &Context{})

	// Asserts
	require.Nil(t, err)
	assert.Equal(t, []string{"gs://b/out/maui.gif"}, urls)
	store.AssertExpectations(t)
}

func TestPublish_Errors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "maui.webm")
	require.Nil(t, os.WriteFile(file, []byte("webm"), 0644))
	store := &mockStore{}
	store.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("403"))

	_, uploadErr := Publish(context.Background(), store, Location{Bucket: "b"}, []string{file}, &Context{})
	_, missingErr := Publish(context.Background(), store, Location{Bucket: "b"}, []string{filepath.Join(dir, "missing.mp4")}, &Context{})

	assert.True(t, util.IsKind(uploadErr, util.DataAccess))
	assert.True(t, util.IsKind(missingErr, util.Configuration))
}
