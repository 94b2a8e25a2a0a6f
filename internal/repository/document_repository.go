package repository

import (
	"fmt"

	"gorm.io/gorm"

	"gopherai-docqa/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) CreateBatch(docs []model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := r.db.Create(&docs).Error; err != nil {
		return fmt.Errorf("create documents failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListByUserID(userID uint) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

// DeleteAll removes every record; the in-memory workspace they describe is shared by all users.
func (r *DocumentRepository) DeleteAll() (int64, error) {
	res := r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Document{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete documents failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}
