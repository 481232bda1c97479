package models

import "time"

// Handler is a staff member who works on cases, referenced by initials.
type Handler struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Initials  string    `gorm:"uniqueIndex;not null" json:"initials"`
	Name      string    `gorm:"not null" json:"name"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Handler model
func (Handler) TableName() string {
	return "handlers"
}

// StorageLocation is a physical shelf/bin where returned units wait.
type StorageLocation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LocationName string    `gorm:"uniqueIndex;not null" json:"locationName"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name for StorageLocation model
func (StorageLocation) TableName() string {
	return "storage_locations"
}

// ProblemCause is a diagnosed root cause category.
type ProblemCause struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for ProblemCause model
func (ProblemCause) TableName() string {
	return "problem_causes"
}
