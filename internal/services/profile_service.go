package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/models"
	"gorm.io/gorm"
)

var ErrSelfRoleChange = errors.New("admins cannot change their own role")

type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}

// Update changes the caller's own contact fields. Role and verified are not user-editable.
func (s *ProfileService) Update(ctx context.Context, id uuid.UUID, req *dto.UpdateProfileRequest) (*models.Profile, error) {
	updates := map[string]any{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if utf8.RuneCountInString(name) > 120 {
			return nil, invalid("full_name", "must be at most 120 characters")
		}
		updates["full_name"] = name
	}
	if req.PhoneNumber != nil {
		phone := strings.TrimSpace(*req.PhoneNumber)
		if len(phone) > 32 {
			return nil, invalid("phone_number", "must be at most 32 characters")
		}
		updates["phone_number"] = phone
	}
	if req.AvatarURL != nil {
		avatar := strings.TrimSpace(*req.AvatarURL)
		if avatar != "" && !strings.HasPrefix(avatar, "https://") {
			return nil, invalid("avatar_url", "must be an https URL")
		}
		updates["avatar_url"] = avatar
	}

	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return profile, nil
	}
	if err := s.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.Get(ctx, id)
}

// SetRole is the admin-only role assignment.
func (s *ProfileService) SetRole(ctx context.Context, actorID, targetID uuid.UUID, role models.Role) (*models.Profile, error) {
	if !role.Valid() {
		return nil, invalid("role", "must be citizen, moderator or admin")
	}
	if actorID == targetID {
		return nil, ErrSelfRoleChange
	}

	result := s.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", targetID).Update("role", role)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to set role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrProfileNotFound
	}

	slog.Info("profile role changed", "action", "set_role", "user_id", actorID.String(), "target_id", targetID.String(), "role", string(role))
	return s.Get(ctx, targetID)
}
