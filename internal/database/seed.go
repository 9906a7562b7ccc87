package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stridelog/stridelog/internal/models"
)

// officialTypes is the seeded sport taxonomy. Sync may add unofficial
// entries beyond these when the provider reports an unknown sport.
var officialTypes = []models.StandardActivityType{
	{Name: "Run", Category: "Foot Sports", DisplayName: "Run", Icon: "run", Color: "orange", IsOfficial: true, DisplayOrder: 1},
	{Name: "TrailRun", Category: "Foot Sports", DisplayName: "Trail Run", Icon: "trail-run", Color: "orange", IsOfficial: true, DisplayOrder: 2},
	{Name: "Walk", Category: "Foot Sports", DisplayName: "Walk", Icon: "walk", Color: "green", IsOfficial: true, DisplayOrder: 3},
	{Name: "Hike", Category: "Foot Sports", DisplayName: "Hike", Icon: "hike", Color: "green", IsOfficial: true, DisplayOrder: 4},
	{Name: "Ride", Category: "Cycle Sports", DisplayName: "Ride", Icon: "ride", Color: "blue", IsOfficial: true, DisplayOrder: 10},
	{Name: "MountainBikeRide", Category: "Cycle Sports", DisplayName: "Mountain Bike Ride", Icon: "mtb", Color: "blue", IsOfficial: true, DisplayOrder: 11},
	{Name: "GravelRide", Category: "Cycle Sports", DisplayName: "Gravel Ride", Icon: "gravel", Color: "blue", IsOfficial: true, DisplayOrder: 12},
	{Name: "VirtualRide", Category: "Cycle Sports", DisplayName: "Virtual Ride", Icon: "virtual-ride", Color: "blue", IsOfficial: true, DisplayOrder: 13},
	{Name: "Swim", Category: "Water Sports", DisplayName: "Swim", Icon: "swim", Color: "cyan", IsOfficial: true, DisplayOrder: 20},
	{Name: "Rowing", Category: "Water Sports", DisplayName: "Rowing", Icon: "rowing", Color: "cyan", IsOfficial: true, DisplayOrder: 21},
	{Name: "NordicSki", Category: "Winter Sports", DisplayName: "Nordic Ski", Icon: "nordic-ski", Color: "slate", IsOfficial: true, DisplayOrder: 30},
	{Name: "AlpineSki", Category: "Winter Sports", DisplayName: "Alpine Ski", Icon: "alpine-ski", Color: "slate", IsOfficial: true, DisplayOrder: 31},
	{Name: "WeightTraining", Category: "Strength", DisplayName: "Weight Training", Icon: "weights", Color: "red", IsOfficial: true, DisplayOrder: 40},
	{Name: "Crossfit", Category: "Strength", DisplayName: "Crossfit", Icon: "crossfit", Color: "red", IsOfficial: true, DisplayOrder: 41},
	{Name: "Yoga", Category: "Mobility", DisplayName: "Yoga", Icon: "yoga", Color: "purple", IsOfficial: true, DisplayOrder: 50},
	{Name: "Workout", Category: "Other", DisplayName: "Workout", Icon: "workout", Color: "gray", IsOfficial: true, DisplayOrder: 90},
}

// SeedStandardTypes inserts the official sport taxonomy, skipping names that
// already exist so restarts and tests are idempotent.
func SeedStandardTypes(db *gorm.DB) error {
	rows := make([]models.StandardActivityType, len(officialTypes))
	copy(rows, officialTypes)
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&rows).Error
}
