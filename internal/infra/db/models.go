package db

import (
	"time"

	"gorm.io/gorm"
)

type UserModel struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	Name             string `gorm:"not null"`
	Email            string `gorm:"not null"`
	PasswordHash     string `gorm:"not null"`
	Role             string `gorm:"not null"`
	RefreshTokenHash *string
	CreatedAt        time.Time      `gorm:"not null"`
	UpdatedAt        time.Time      `gorm:"not null"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (UserModel) TableName() string { return "users" }

type DocumentModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	OwnerID    string `gorm:"type:uuid;index;not null"`
	Filename   string `gorm:"not null"`
	URL        string `gorm:"not null"`
	StorageKey string `gorm:"not null"`
	FileSize   int64  `gorm:"not null"`
	MimeType   string `gorm:"not null"`
	PageCount  int    `gorm:"not null"`
	Checksum   *string
	UploadedAt time.Time      `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"not null"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (DocumentModel) TableName() string { return "documents" }

type SignatureModel struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	DocumentID      string  `gorm:"type:uuid;index;not null"`
	UserID          string  `gorm:"type:uuid;index;not null"`
	Page            int     `gorm:"not null"`
	X               float64 `gorm:"not null"`
	Y               float64 `gorm:"not null"`
	Width           float64 `gorm:"not null"`
	Height          float64 `gorm:"not null"`
	Status          string  `gorm:"not null"`
	Reason          *string
	ImageURL        string    `gorm:"not null"`
	ImageStorageKey string    `gorm:"not null"`
	Seq             int64     `gorm:"<-:false"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
	RenderedAt      *time.Time
}

func (SignatureModel) TableName() string { return "signatures" }

// AuditEntryModel rows are append-only; a trigger rejects UPDATE and DELETE.
type AuditEntryModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	Seq        int64  `gorm:"<-:false"`
	DocumentID string `gorm:"type:uuid;index;not null"`
	UserID     string `gorm:"type:uuid;not null"`
	Action     string `gorm:"not null"`
	IP         *string
	Timestamp  time.Time `gorm:"not null"`
}

func (AuditEntryModel) TableName() string { return "audit_entries" }
