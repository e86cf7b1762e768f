package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tkluge/tournament-server/models"
	"github.com/tkluge/tournament-server/repositories"
	"github.com/tkluge/tournament-server/storage"
)

var ErrUnsupportedAvatarType = errors.New("unsupported avatar content type")

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UserService interface {
	GetProfile(ctx context.Context, userID int) (*models.User, error)
	UploadAvatar(ctx context.Context, userID int, contentType string, file io.Reader) (*models.User, error)
	RemoveAvatar(ctx context.Context, userID int) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewUserService(userRepo repositories.UserRepository, uploader storage.FileUploader, logger *slog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		uploader: uploader,
		logger:   logger,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.attachAvatarURL(user)
	return user, nil
}

// UploadAvatar stores the new image first and only then swaps the key on
// the user row, so a failed upload never leaves a dangling reference. The
// previous object is removed best effort.
func (s *userService) UploadAvatar(ctx context.Context, userID int, contentType string, file io.Reader) (*models.User, error) {
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, ErrUnsupportedAvatarType
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	oldKey := user.AvatarKey
	if err := s.userRepo.UpdateAvatarKey(ctx, userID, &result.Key); err != nil {
		if delErr := s.uploader.Delete(ctx, result.Key); delErr != nil {
			s.logger.Error("failed to delete orphaned avatar",
				slog.String("key", result.Key), slog.Any("error", delErr))
		}
		return nil, err
	}

	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous avatar",
				slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	user.AvatarKey = &result.Key
	s.attachAvatarURL(user)
	return user, nil
}

// RemoveAvatar clears the user's avatar reference and deletes the stored
// object best effort.
func (s *userService) RemoveAvatar(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AvatarKey == nil {
		return user, nil
	}

	key := *user.AvatarKey
	if err := s.userRepo.UpdateAvatarKey(ctx, userID, nil); err != nil {
		return nil, err
	}
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete avatar object",
			slog.String("key", key), slog.Any("error", err))
	}

	user.AvatarKey = nil
	user.AvatarURL = nil
	return user, nil
}

func (s *userService) attachAvatarURL(user *models.User) {
	if user.AvatarKey == nil {
		return
	}
	url := s.uploader.GetPublicURL(*user.AvatarKey)
	if url != "" {
		user.AvatarURL = &url
	}
}
