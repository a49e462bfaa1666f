package models

import "time"

// Task represents a unit of work with an attached image.
//
// Free starts true and flips to false exactly once, when a worker claims the
// task. There is no release operation: a claimed task never becomes free
// again.
type Task struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Free     bool   `json:"free" gorm:"not null;default:true"`
	Metadata string `json:"metadata" gorm:"type:text"`
	// ImageType is the sniffed image extension (e.g. "png"), used to locate
	// the blob stored out-of-band as <ID>.<ImageType>.
	ImageType string    `json:"image_type" gorm:"type:varchar(10)"`
	OwnerID   string    `json:"owner_id" gorm:"index;type:varchar(36);not null" validate:"required,uuid"`
	Owner     *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
