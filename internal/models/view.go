package models

import "time"

// ViewEvent records one view of a contact. Rows are append-only and carry no
// foreign key, so history survives the contact.
type ViewEvent struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	ContactID uint64    `gorm:"index;not null"`
	ViewedAt  time.Time `gorm:"index;not null"`
}

func (ViewEvent) TableName() string {
	return "contact_views"
}

// DailyViewCount is a row of the daily_contact_views read model.
type DailyViewCount struct {
	ContactID uint64
	ViewDate  string // YYYY-MM-DD, UTC
	ViewCount int64
}

func (DailyViewCount) TableName() string {
	return "daily_contact_views"
}

// DailyViews is one point of an analytics series.
type DailyViews struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}

// Analytics summarizes the views of a contact over the trailing week.
type Analytics struct {
	Total       int64        `json:"total"`
	DailySeries []DailyViews `json:"dailySeries"`
}
