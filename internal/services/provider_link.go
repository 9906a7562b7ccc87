package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/provider"
	"github.com/stridelog/stridelog/internal/types"
)

// ProviderStatusResult reports whether and how a user is connected to the provider.
type ProviderStatusResult struct {
	Connected   bool   `json:"connected"`
	AthleteID   int64  `json:"athlete_id,omitempty"`
	AthleteName string `json:"athlete_name,omitempty"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

// ConnectProvider completes the OAuth flow: exchanges the callback code and
// stores (or replaces) the user's token set.
func ConnectProvider(ctx context.Context, db *gorm.DB, api provider.API, userID uint64, code string) (*models.ProviderToken, *types.AppError) {
	if code == "" {
		return nil, types.Validation("authorization code is required", "code")
	}

	fresh, err := api.ExchangeCode(ctx, code)
	if err != nil {
		return nil, providerError(err)
	}

	tok := models.ProviderToken{
		UserID:              userID,
		AccessToken:         fresh.AccessToken,
		RefreshToken:        fresh.RefreshToken,
		ExpiresAt:           fresh.ExpiresAt,
		ProviderAthleteID:   fresh.Athlete.ID,
		ProviderAthleteName: fmt.Sprintf("%s %s", fresh.Athlete.Firstname, fresh.Athlete.Lastname),
	}

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "expires_at",
			"provider_athlete_id", "provider_athlete_name", "updated_at",
		}),
	}).Create(&tok).Error
	if err != nil {
		return nil, types.Persistence(err)
	}

	return &tok, nil
}

// DisconnectProvider drops the stored token set. Imported activities stay.
func DisconnectProvider(db *gorm.DB, userID uint64) *types.AppError {
	res := db.Where("user_id = ?", userID).Delete(&models.ProviderToken{})
	if res.Error != nil {
		return types.Persistence(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NotFound("no provider connection for this user")
	}
	return nil
}

// GetProviderStatus reports the user's connection state.
func GetProviderStatus(db *gorm.DB, userID uint64) (*ProviderStatusResult, *types.AppError) {
	var tok models.ProviderToken
	if err := db.Where("user_id = ?", userID).First(&tok).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ProviderStatusResult{Connected: false}, nil
		}
		return nil, types.Persistence(err)
	}
	return &ProviderStatusResult{
		Connected:   true,
		AthleteID:   tok.ProviderAthleteID,
		AthleteName: tok.ProviderAthleteName,
		ExpiresAt:   tok.ExpiresAt,
	}, nil
}

// GetAthleteStats passes the provider's aggregate totals through for the
// connected athlete.
func GetAthleteStats(ctx context.Context, db *gorm.DB, api provider.API, userID uint64) (map[string]any, *types.AppError) {
	tok, appErr := EnsureFreshToken(ctx, db, api, userID)
	if appErr != nil {
		return nil, appErr
	}

	raw, err := api.GetAthleteStats(ctx, tok.AccessToken, tok.ProviderAthleteID)
	if err != nil {
		return nil, providerError(err)
	}
	return raw, nil
}
