package service

import (
	"github.com/google/uuid"
	"github.com/nebari-dev/refstore/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Hard deletes, children first. Blueprint snapshots are never edited: a
// deleted block simply dangles in the snapshots that name it.

func deleteApp(tx *gorm.DB, app *models.App) error {
	var templateIDs, blueprintIDs []string
	if err := tx.Model(&models.Template{}).Where("app_id = ?", app.ID).Pluck("id", &templateIDs).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Blueprint{}).Where("app_id = ?", app.ID).Pluck("id", &blueprintIDs).Error; err != nil {
		return err
	}

	if err := deleteTemplates(tx, templateIDs); err != nil {
		return err
	}
	if err := deleteBlueprints(tx, blueprintIDs); err != nil {
		return err
	}
	return tx.Delete(app).Error
}

func deleteTemplates(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("template_id IN ?", ids).Delete(&models.TemplateVersion{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Template{}).Error
}

func deleteBlueprints(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var blockIDs []string
	if err := tx.Model(&models.Block{}).Where("blueprint_id IN ?", ids).Pluck("id", &blockIDs).Error; err != nil {
		return err
	}
	if err := deleteBlocks(tx, blockIDs); err != nil {
		return err
	}
	if err := tx.Where("blueprint_id IN ?", ids).Delete(&models.BlueprintVersion{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Blueprint{}).Error
}

func deleteBlocks(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("block_id IN ?", ids).Delete(&models.BlockVersion{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Block{}).Error
}

// slugTaken reports whether an entity of either kind already uses slug in
// the app, so a reference always names exactly one entity. The app row is
// locked first: templates and blueprints live in separate tables, so no
// unique index can catch two creators racing on one slug.
func slugTaken(tx *gorm.DB, appID uuid.UUID, slug string) (bool, error) {
	if err := lockApp(tx, appID); err != nil {
		return false, err
	}

	var n int64
	if err := tx.Model(&models.Template{}).Where("app_id = ? AND slug = ?", appID, slug).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if err := tx.Model(&models.Blueprint{}).Where("app_id = ? AND slug = ?", appID, slug).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// lockApp holds the app row lock until tx ends. SQLite serializes write
// transactions on its single connection and has no FOR UPDATE.
func lockApp(tx *gorm.DB, appID uuid.UUID) error {
	q := tx.Model(&models.App{}).Where("id = ?", appID)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var ids []string
	if err := q.Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
