package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/provider"
	"github.com/stridelog/stridelog/internal/types"
)

// tokenExpiryBuffer: a token this close to expiry is refreshed before use so
// it cannot lapse mid-sync.
const tokenExpiryBuffer = 300 * time.Second

// SyncOptions narrow a sync run.
type SyncOptions struct {
	Limit  int
	After  *time.Time
	Before *time.Time
}

// SyncResult reports what a sync run did. Errors holds per-record
// normalization failures; those records were skipped, not stored.
type SyncResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// EnsureFreshToken returns a provider token for the user, refreshing and
// persisting it first when it is inside the expiry buffer. A failed refresh
// means the grant was revoked and the user has to reconnect.
func EnsureFreshToken(ctx context.Context, db *gorm.DB, api provider.API, userID uint64) (*models.ProviderToken, *types.AppError) {
	var tok models.ProviderToken
	if err := db.Where("user_id = ?", userID).First(&tok).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("no provider connection for this user")
		}
		return nil, types.Persistence(err)
	}

	if time.Until(time.Unix(tok.ExpiresAt, 0)) > tokenExpiryBuffer {
		return &tok, nil
	}

	fresh, err := api.Refresh(ctx, tok.RefreshToken)
	if err != nil {
		if appErr := providerError(err); appErr != nil {
			if appErr.Kind == types.ErrRateLimited {
				return nil, appErr
			}
		}
		return nil, types.Authorization("provider token refresh failed, reconnect required")
	}

	tok.AccessToken = fresh.AccessToken
	if fresh.RefreshToken != "" {
		tok.RefreshToken = fresh.RefreshToken
	}
	tok.ExpiresAt = fresh.ExpiresAt
	if err := db.Save(&tok).Error; err != nil {
		return nil, types.Persistence(err)
	}

	return &tok, nil
}

// Sync imports the user's recent provider activities. The whole page is
// fetched before any write, then applied in one transaction: a storage
// failure rolls back the entire batch, while a malformed record is skipped
// and reported without aborting the rest.
func Sync(ctx context.Context, db *gorm.DB, api provider.API, userID uint64, opts SyncOptions) (*SyncResult, *types.AppError) {
	tok, appErr := EnsureFreshToken(ctx, db, api, userID)
	if appErr != nil {
		return nil, appErr
	}

	raws, err := api.ListActivities(ctx, tok.AccessToken, provider.ListOptions{
		Limit:  opts.Limit,
		After:  opts.After,
		Before: opts.Before,
	})
	if err != nil {
		return nil, providerError(err)
	}

	result := &SyncResult{}
	typeCache := map[string]bool{}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, raw := range raws {
			act, normErr := activityFromProvider(userID, raw)
			if normErr != nil {
				result.Skipped++
				result.Errors = append(result.Errors, normErr.Error())
				continue
			}

			if err := ensureSportType(tx, typeCache, act.SportType); err != nil {
				return err
			}

			var existing models.Activity
			err := tx.Where("user_id = ? AND external_id = ?", userID, *act.ExternalID).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(act).Error; err != nil {
					return err
				}
				result.Created++
			case err == nil:
				if err := tx.Model(&existing).Updates(providerColumns(act)).Error; err != nil {
					return err
				}
				result.Updated++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, types.Persistence(err)
	}

	log.Printf("Sync for user %d: %d created, %d updated, %d skipped", userID, result.Created, result.Updated, result.Skipped)
	return result, nil
}

// SyncOne refreshes a single stored activity from the provider's detail
// endpoint, which carries fields the list omits (description, calories,
// splits, laps).
func SyncOne(ctx context.Context, db *gorm.DB, api provider.API, userID, activityID uint64) (*models.Activity, *types.AppError) {
	var act models.Activity
	if err := db.Where("id = ? AND user_id = ?", activityID, userID).First(&act).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("activity not found")
		}
		return nil, types.Persistence(err)
	}
	if act.ExternalID == nil {
		return nil, types.Validation("manual activities have no provider record", "id")
	}

	tok, appErr := EnsureFreshToken(ctx, db, api, userID)
	if appErr != nil {
		return nil, appErr
	}

	raw, err := api.GetActivity(ctx, tok.AccessToken, *act.ExternalID)
	if err != nil {
		return nil, providerError(err)
	}

	fresh, normErr := activityFromProvider(userID, raw)
	if normErr != nil {
		return nil, types.Validation(fmt.Sprintf("provider record is malformed: %v", normErr), "")
	}

	if err := db.Model(&act).Updates(providerColumns(fresh)).Error; err != nil {
		return nil, types.Persistence(err)
	}
	if err := db.Where("id = ?", act.ID).First(&act).Error; err != nil {
		return nil, types.Persistence(err)
	}
	return &act, nil
}

// providerError maps a provider client failure to the error taxonomy.
func providerError(err error) *types.AppError {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 {
			ra := apiErr.RetryAfter
			if ra <= 0 {
				ra = 60
			}
			return types.RateLimited("provider rate limit exceeded", ra)
		}
		if apiErr.StatusCode == 401 {
			return types.Authorization("provider rejected the access token, reconnect required")
		}
	}
	return types.External("provider request failed", err)
}

// ensureSportType creates an unofficial taxonomy entry for a sport the
// seeded set does not know, so the imported row's reference resolves.
func ensureSportType(tx *gorm.DB, cache map[string]bool, name string) error {
	if cache[name] {
		return nil
	}

	var count int64
	if err := tx.Model(&models.StandardActivityType{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		t := models.StandardActivityType{
			Name:         name,
			Category:     "Other",
			DisplayName:  name,
			IsOfficial:   false,
			DisplayOrder: 999,
		}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		log.Printf("Auto-created activity type %q", name)
	}

	cache[name] = true
	return nil
}

// activityFromProvider builds an Activity row from a raw provider record.
// Any normalization failure rejects the whole record.
func activityFromProvider(userID uint64, raw map[string]any) (*models.Activity, error) {
	idVal, ok := raw["id"]
	if !ok {
		return nil, fmt.Errorf("record has no id")
	}
	idNorm, err := provider.NormalizeFloat(idVal)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	externalID := int64(idNorm)

	act := &models.Activity{
		UserID:     userID,
		ExternalID: &externalID,
	}

	if act.Name, err = provider.NormalizeString(raw["name"]); err != nil {
		return nil, fmt.Errorf("activity %d name: %w", externalID, err)
	}
	if act.Name == "" {
		act.Name = "Untitled activity"
	}

	sportVal := raw["sport_type"]
	if sportVal == nil {
		sportVal = raw["type"]
	}
	if sportVal == nil {
		act.SportType = "Workout"
	} else if act.SportType, err = provider.NormalizeEnum(sportVal); err != nil {
		return nil, fmt.Errorf("activity %d sport_type: %w", externalID, err)
	}

	if raw["start_date"] != nil {
		if act.StartDate, err = provider.NormalizeTime(raw["start_date"]); err != nil {
			return nil, fmt.Errorf("activity %d start_date: %w", externalID, err)
		}
	}
	if raw["start_date_local"] != nil {
		if act.StartDateLocal, err = provider.NormalizeTime(raw["start_date_local"]); err != nil {
			return nil, fmt.Errorf("activity %d start_date_local: %w", externalID, err)
		}
	} else {
		act.StartDateLocal = act.StartDate
	}
	act.DayDate = act.StartDateLocal.Format("2006-01-02")

	if act.Description, err = provider.NormalizeString(raw["description"]); err != nil {
		return nil, fmt.Errorf("activity %d description: %w", externalID, err)
	}
	if act.Timezone, err = provider.NormalizeString(raw["timezone"]); err != nil {
		return nil, fmt.Errorf("activity %d timezone: %w", externalID, err)
	}
	if act.DeviceName, err = provider.NormalizeString(raw["device_name"]); err != nil {
		return nil, fmt.Errorf("activity %d device_name: %w", externalID, err)
	}

	floats := map[string]*float64{
		"distance":             &act.Distance,
		"total_elevation_gain": &act.TotalElevationGain,
		"average_speed":        &act.AverageSpeed,
		"max_speed":            &act.MaxSpeed,
	}
	for field, dst := range floats {
		if raw[field] == nil {
			continue
		}
		if *dst, err = provider.NormalizeFloat(raw[field]); err != nil {
			return nil, fmt.Errorf("activity %d %s: %w", externalID, field, err)
		}
	}

	optFloats := map[string]**float64{
		"average_heartrate": &act.AverageHeartrate,
		"max_heartrate":     &act.MaxHeartrate,
		"calories":          &act.Calories,
	}
	for field, dst := range optFloats {
		if raw[field] == nil {
			continue
		}
		f, err := provider.NormalizeFloat(raw[field])
		if err != nil {
			return nil, fmt.Errorf("activity %d %s: %w", externalID, field, err)
		}
		*dst = &f
	}

	ints := map[string]*int{
		"elapsed_time": &act.ElapsedTime,
		"moving_time":  &act.MovingTime,
	}
	for field, dst := range ints {
		if raw[field] == nil {
			continue
		}
		f, err := provider.NormalizeFloat(raw[field])
		if err != nil {
			return nil, fmt.Errorf("activity %d %s: %w", externalID, field, err)
		}
		*dst = int(f)
	}

	bools := map[string]*bool{
		"trainer": &act.Trainer,
		"commute": &act.Commute,
		"manual":  &act.Manual,
	}
	for field, dst := range bools {
		if raw[field] == nil {
			continue
		}
		if *dst, err = provider.NormalizeBool(raw[field]); err != nil {
			return nil, fmt.Errorf("activity %d %s: %w", externalID, field, err)
		}
	}

	jsons := map[string]*models.JSON{
		"start_latlng":  &act.StartLatlng,
		"end_latlng":    &act.EndLatlng,
		"splits_metric": &act.SplitsMetric,
		"laps":          &act.Laps,
	}
	for field, dst := range jsons {
		if raw[field] == nil {
			continue
		}
		norm, err := provider.NormalizeValue(raw[field])
		if err != nil {
			return nil, fmt.Errorf("activity %d %s: %w", externalID, field, err)
		}
		buf, err := json.Marshal(norm)
		if err != nil {
			return nil, fmt.Errorf("activity %d %s: %w", externalID, field, err)
		}
		dst.JSON = buf
	}

	return act, nil
}

// providerColumns is the update set for re-synced activities. Annotation
// columns and the extended type are user-owned and deliberately absent, so
// a merge never clobbers them.
func providerColumns(act *models.Activity) map[string]interface{} {
	cols := map[string]interface{}{
		"sport_type":           act.SportType,
		"name":                 act.Name,
		"start_date":           act.StartDate,
		"start_date_local":     act.StartDateLocal,
		"day_date":             act.DayDate,
		"timezone":             act.Timezone,
		"elapsed_time":         act.ElapsedTime,
		"moving_time":          act.MovingTime,
		"distance":             act.Distance,
		"total_elevation_gain": act.TotalElevationGain,
		"average_speed":        act.AverageSpeed,
		"max_speed":            act.MaxSpeed,
		"trainer":              act.Trainer,
		"commute":              act.Commute,
		"manual":               act.Manual,
		"device_name":          act.DeviceName,
	}
	if act.Description != "" {
		cols["description"] = act.Description
	}
	if act.AverageHeartrate != nil {
		cols["average_heartrate"] = act.AverageHeartrate
	}
	if act.MaxHeartrate != nil {
		cols["max_heartrate"] = act.MaxHeartrate
	}
	if act.Calories != nil {
		cols["calories"] = act.Calories
	}
	if len(act.StartLatlng.JSON) > 0 {
		cols["start_latlng"] = act.StartLatlng
	}
	if len(act.EndLatlng.JSON) > 0 {
		cols["end_latlng"] = act.EndLatlng
	}
	if len(act.SplitsMetric.JSON) > 0 {
		cols["splits_metric"] = act.SplitsMetric
	}
	if len(act.Laps.JSON) > 0 {
		cols["laps"] = act.Laps
	}
	return cols
}
