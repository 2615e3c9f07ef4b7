package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcessingJob - запись журнала об одной обработанной выгрузке.
type ProcessingJob struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	SessionID      uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	OwnerID        uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	FileName       string    `gorm:"type:text;not null" json:"file_name"`
	TotalRows      int       `gorm:"not null" json:"total_rows"`
	KeptRows       int       `gorm:"not null" json:"kept_rows"`
	DroppedDistant int       `gorm:"not null" json:"dropped_distant"`
	PlatesFound    int       `gorm:"not null" json:"plates_found"`
	Parts          int       `gorm:"not null" json:"parts"`
	// MissingColumns - роли ненайденных столбцов через запятую
	MissingColumns string    `gorm:"type:text" json:"missing_columns"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ProcessingJob) TableName() string {
	return "processing_jobs"
}

func (j *ProcessingJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
