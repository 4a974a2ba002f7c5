package specification

import (
	"time"

	"gorm.io/gorm"
)

type BySession struct {
	SessionID string
}

func (s BySession) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByModel struct {
	Model string
}

func (s ByModel) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("model = ?", s.Model)
}

type CreatedSince struct {
	Since time.Time
}

func (s CreatedSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at >= ?", s.Since)
}

// Recent orders newest first and caps the result.
func Recent(limit int) []Specification {
	return []Specification{OrderBy{Field: "created_at", Desc: true}, Pagination{Limit: limit}}
}
