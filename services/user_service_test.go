package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkluge/tournament-server/models"
	"github.com/tkluge/tournament-server/storage"
)

type fakeUploader struct {
	uploads []string
	deletes []string
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	f.uploads = append(f.uploads, key)
	return &storage.UploadResult{Key: key, Location: "https://cdn.example.com/" + key}, nil
}

func (f *fakeUploader) Delete(ctx context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestUploadAvatarReplacesPrevious(t *testing.T) {
	oldKey := "avatars/1/old.png"
	userRepo := newFakeUserRepo(&models.User{ID: 1, Username: "alice", AvatarKey: &oldKey})
	uploader := &fakeUploader{}
	svc := NewUserService(userRepo, uploader, testLogger())

	user, err := svc.UploadAvatar(context.Background(), 1, "image/png", strings.NewReader("img"))
	require.NoError(t, err)

	require.NotNil(t, user.AvatarKey)
	assert.NotEqual(t, oldKey, *user.AvatarKey)
	require.NotNil(t, user.AvatarURL)
	assert.Contains(t, *user.AvatarURL, *user.AvatarKey)

	require.Len(t, uploader.uploads, 1)
	assert.Equal(t, []string{oldKey}, uploader.deletes)
}

func TestUploadAvatarRejectsUnknownContentType(t *testing.T) {
	userRepo := newFakeUserRepo(&models.User{ID: 1, Username: "alice"})
	uploader := &fakeUploader{}
	svc := NewUserService(userRepo, uploader, testLogger())

	_, err := svc.UploadAvatar(context.Background(), 1, "application/pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedAvatarType)
	assert.Empty(t, uploader.uploads)
}

func TestRemoveAvatar(t *testing.T) {
	key := "avatars/1/a.png"
	userRepo := newFakeUserRepo(&models.User{ID: 1, Username: "alice", AvatarKey: &key})
	uploader := &fakeUploader{}
	svc := NewUserService(userRepo, uploader, testLogger())

	user, err := svc.RemoveAvatar(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, user.AvatarKey)
	assert.Equal(t, []string{key}, uploader.deletes)

	// Removing again is a no-op.
	_, err = svc.RemoveAvatar(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, uploader.deletes, 1)
}
