// internal/repository/templates.go
package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"keytrace-go/internal/database"
	"keytrace-go/internal/models"
)

func GetAllTemplates() ([]models.EnrollmentTemplate, error) {
	var templates []models.EnrollmentTemplate
	err := database.DB.Order("user_id").Find(&templates).Error
	return templates, err
}

func GetTemplateByUserID(userID string) (*models.EnrollmentTemplate, error) {
	var tpl models.EnrollmentTemplate
	err := database.DB.Where("user_id = ?", userID).First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

// SaveTemplate inserts a template, or replaces the existing row for the same
// user. Re-enrollment is a whole-row overwrite, never a partial update.
func SaveTemplate(tpl *models.EnrollmentTemplate) error {
	return database.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"model_id", "total_keystrokes", "features", "digraphs", "updated_at",
		}),
	}).Create(tpl).Error
}

func DeleteTemplate(userID string) error {
	return database.DB.Where("user_id = ?", userID).Delete(&models.EnrollmentTemplate{}).Error
}

func CountTemplates() (int64, error) {
	var count int64
	err := database.DB.Model(&models.EnrollmentTemplate{}).Count(&count).Error
	return count, err
}
