package storage

import "time"

type Link struct {
	ID        string    `json:"id" db:"id"`
	URL       string    `json:"url" db:"url"`
	Clicks    int64     `json:"clicks" db:"clicks"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
