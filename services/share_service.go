package services

import (
	"context"
	"errors"
	"time"

	"examforge/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ShareService issues and redeems share grants. A grant is a capability: the
// unguessable token is the whole secret, but redeeming it still requires the
// owner id and test id to line up with the stored grant, so a token can never
// be replayed against a different owner or test.
type ShareService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewShareService(db *gorm.DB, logger *zap.Logger) *ShareService {
	return &ShareService{db: db, logger: logger}
}

// CreateShare returns the share token for a test the caller owns, creating
// the grant on first call. Repeated calls return the same token; there is at
// most one grant per test.
func (s *ShareService) CreateShare(ctx context.Context, testID uint, callerID string) (string, error) {
	if testID == 0 {
		return "", ErrNotFound
	}

	var test models.Test
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", testID, callerID).
		First(&test).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", ErrInternal
	}

	var existing models.ShareGrant
	err = s.db.WithContext(ctx).Where("test_id = ?", testID).First(&existing).Error
	if err == nil {
		return existing.Token, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInternal
	}

	grant := models.ShareGrant{
		Token:   uuid.NewString(),
		TestID:  test.ID,
		OwnerID: test.UserID,
		Enabled: true,
	}
	if err := s.db.WithContext(ctx).Create(&grant).Error; err != nil {
		s.logger.Error("failed to persist share grant",
			zap.Uint("test_id", testID), zap.Error(err))
		return "", ErrInternal
	}

	return grant.Token, nil
}

// RedeemShare grants the caller read access to a shared test. All three
// claims — owner, test, token — must match one stored grant; any mismatch is
// NotFound, with no hint of which factor was wrong.
func (s *ShareService) RedeemShare(ctx context.Context, ownerID string, testID uint, token string, callerID string) error {
	if ownerID == "" || testID == 0 || token == "" {
		return ErrNotFound
	}

	// The claimed owner must exist and not be locked out.
	var owner models.User
	err := s.db.WithContext(ctx).Where("id = ?", ownerID).First(&owner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}
	if owner.Locked(time.Now().UTC()) {
		return ErrNotFound
	}

	// The test must exist and really belong to the claimed owner.
	var test models.Test
	err = s.db.WithContext(ctx).Where("id = ?", testID).First(&test).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}
	if test.UserID != owner.ID {
		return ErrNotFound
	}

	// The grant must exist, be enabled, and bind exactly this owner and test.
	var grant models.ShareGrant
	err = s.db.WithContext(ctx).Where("token = ?", token).First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}
	if !grant.Enabled || grant.OwnerID != owner.ID || grant.TestID != test.ID {
		return ErrNotFound
	}

	// One redemption per user per grant; redeeming again is a no-op. The new
	// id lives in Attrs so the lookup matches on grant+user alone.
	var redemption models.ShareRedemption
	err = s.db.WithContext(ctx).
		Where("grant_token = ? AND user_id = ?", grant.Token, callerID).
		Attrs(models.ShareRedemption{
			ID:         uuid.NewString(),
			GrantToken: grant.Token,
			UserID:     callerID,
		}).
		FirstOrCreate(&redemption).Error
	if err != nil {
		s.logger.Error("failed to persist share redemption",
			zap.String("grant_token", grant.Token), zap.Error(err))
		return ErrInternal
	}

	return nil
}

// ListSharedWithMe returns every test reachable through an enabled grant the
// caller has redeemed.
func (s *ShareService) ListSharedWithMe(ctx context.Context, callerID string) ([]models.Test, error) {
	var tests []models.Test
	err := s.db.WithContext(ctx).
		Joins("JOIN share_grants ON share_grants.test_id = tests.id AND share_grants.enabled = ?", true).
		Joins("JOIN share_redemptions ON share_redemptions.grant_token = share_grants.token").
		Where("share_redemptions.user_id = ?", callerID).
		Find(&tests).Error
	if err != nil {
		return nil, ErrInternal
	}
	return tests, nil
}

// HasAccess reports whether the caller may read the test: either as its owner
// or through a redeemed, still-enabled grant.
func (s *ShareService) HasAccess(ctx context.Context, testID uint, callerID string) (bool, error) {
	var test models.Test
	err := s.db.WithContext(ctx).Where("id = ?", testID).First(&test).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, ErrInternal
	}
	if test.UserID == callerID {
		return true, nil
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&models.ShareRedemption{}).
		Joins("JOIN share_grants ON share_grants.token = share_redemptions.grant_token").
		Where("share_grants.test_id = ? AND share_grants.enabled = ? AND share_redemptions.user_id = ?",
			testID, true, callerID).
		Count(&count).Error
	if err != nil {
		return false, ErrInternal
	}
	return count > 0, nil
}
