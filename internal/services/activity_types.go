package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/stridelog/stridelog/internal/models"
	"github.com/stridelog/stridelog/internal/types"
)

// ExtendedTypeInput is the payload for creating or updating an extended
// activity type.
type ExtendedTypeInput struct {
	BaseSportType string  `json:"base_sport_type"`
	CustomName    string  `json:"custom_name"`
	Description   *string `json:"description"`
	IconOverride  *string `json:"icon_override"`
	ColorClass    *string `json:"color_class"`
	DisplayOrder  *int    `json:"display_order"`
}

// ListStandardTypes returns the taxonomy ordered for display.
func ListStandardTypes(db *gorm.DB) ([]models.StandardActivityType, *types.AppError) {
	var list []models.StandardActivityType
	if err := db.Order("display_order ASC, name ASC").Find(&list).Error; err != nil {
		return nil, types.Persistence(err)
	}
	return list, nil
}

// ListStandardTypesGrouped returns the taxonomy keyed by category.
func ListStandardTypesGrouped(db *gorm.DB) (map[string][]models.StandardActivityType, *types.AppError) {
	list, appErr := ListStandardTypes(db)
	if appErr != nil {
		return nil, appErr
	}
	grouped := map[string][]models.StandardActivityType{}
	for _, t := range list {
		grouped[t.Category] = append(grouped[t.Category], t)
	}
	return grouped, nil
}

// ListExtendedTypes returns active extended types, grouped by base sport.
func ListExtendedTypes(db *gorm.DB) (map[string][]models.ExtendedActivityType, *types.AppError) {
	var list []models.ExtendedActivityType
	if err := db.Where("is_active = ?", true).
		Order("base_sport_type ASC, display_order ASC, custom_name ASC").
		Find(&list).Error; err != nil {
		return nil, types.Persistence(err)
	}
	grouped := map[string][]models.ExtendedActivityType{}
	for _, t := range list {
		grouped[t.BaseSportType] = append(grouped[t.BaseSportType], t)
	}
	return grouped, nil
}

// CreateExtendedType adds a refinement under an existing standard sport.
func CreateExtendedType(db *gorm.DB, in ExtendedTypeInput) (*models.ExtendedActivityType, *types.AppError) {
	name := strings.TrimSpace(in.CustomName)
	if name == "" {
		return nil, types.Validation("custom_name is required", "custom_name")
	}

	var ext models.ExtendedActivityType
	var appErr *types.AppError

	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.StandardActivityType{}).
			Where("name = ?", in.BaseSportType).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			appErr = types.Validation("unknown base sport type", "base_sport_type")
			return appErr
		}

		if err := tx.Model(&models.ExtendedActivityType{}).
			Where("custom_name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			appErr = types.Conflict("an extended type with this name already exists")
			return appErr
		}

		ext = models.ExtendedActivityType{
			BaseSportType: in.BaseSportType,
			CustomName:    name,
			IsActive:      true,
		}
		if in.Description != nil {
			ext.Description = *in.Description
		}
		if in.IconOverride != nil {
			ext.IconOverride = *in.IconOverride
		}
		if in.ColorClass != nil {
			ext.ColorClass = *in.ColorClass
		}
		if in.DisplayOrder != nil {
			ext.DisplayOrder = *in.DisplayOrder
		}
		return tx.Create(&ext).Error
	})
	if err != nil {
		if appErr != nil {
			return nil, appErr
		}
		return nil, types.Persistence(err)
	}
	return &ext, nil
}

// UpdateExtendedType applies a partial patch to an active extended type.
func UpdateExtendedType(db *gorm.DB, id uint64, in ExtendedTypeInput) (*models.ExtendedActivityType, *types.AppError) {
	var ext models.ExtendedActivityType
	if err := db.Where("id = ? AND is_active = ?", id, true).First(&ext).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("extended type not found")
		}
		return nil, types.Persistence(err)
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(in.CustomName); name != "" && name != ext.CustomName {
		var count int64
		if err := db.Model(&models.ExtendedActivityType{}).
			Where("custom_name = ? AND id <> ?", name, id).Count(&count).Error; err != nil {
			return nil, types.Persistence(err)
		}
		if count > 0 {
			return nil, types.Conflict("an extended type with this name already exists")
		}
		updates["custom_name"] = name
	}
	if in.BaseSportType != "" && in.BaseSportType != ext.BaseSportType {
		var count int64
		if err := db.Model(&models.StandardActivityType{}).
			Where("name = ?", in.BaseSportType).Count(&count).Error; err != nil {
			return nil, types.Persistence(err)
		}
		if count == 0 {
			return nil, types.Validation("unknown base sport type", "base_sport_type")
		}
		updates["base_sport_type"] = in.BaseSportType
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.IconOverride != nil {
		updates["icon_override"] = *in.IconOverride
	}
	if in.ColorClass != nil {
		updates["color_class"] = *in.ColorClass
	}
	if in.DisplayOrder != nil {
		updates["display_order"] = *in.DisplayOrder
	}

	if len(updates) > 0 {
		if err := db.Model(&ext).Updates(updates).Error; err != nil {
			return nil, types.Persistence(err)
		}
		if err := db.Where("id = ?", id).First(&ext).Error; err != nil {
			return nil, types.Persistence(err)
		}
	}
	return &ext, nil
}

// DeactivateExtendedType soft-deletes an extended type. Existing activity
// and plan references keep resolving through the inactive row.
func DeactivateExtendedType(db *gorm.DB, id uint64) *types.AppError {
	res := db.Model(&models.ExtendedActivityType{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return types.Persistence(res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NotFound("extended type not found")
	}
	return nil
}

// RestoreExtendedType reactivates a soft-deleted extended type.
func RestoreExtendedType(db *gorm.DB, id uint64) (*models.ExtendedActivityType, *types.AppError) {
	var ext models.ExtendedActivityType
	if err := db.Where("id = ? AND is_active = ?", id, false).First(&ext).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("no deactivated extended type with this id")
		}
		return nil, types.Persistence(err)
	}
	if err := db.Model(&ext).Update("is_active", true).Error; err != nil {
		return nil, types.Persistence(err)
	}
	ext.IsActive = true
	return &ext, nil
}
