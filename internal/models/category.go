package models

import (
	"time"
)

// Category groups articles; slug is its unique key
type Category struct {
	Slug        string        `json:"slug" bson:"slug"`
	Title       LocalizedText `json:"title" bson:"title"`
	Description LocalizedText `json:"description" bson:"description"`
	Icon        string        `json:"icon" bson:"icon"`
	Color       string        `json:"color" bson:"color"`
	Order       int           `json:"order" bson:"order"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// CategoryInput is the create request body
type CategoryInput struct {
	Slug        string        `json:"slug"`
	Title       LocalizedText `json:"title"`
	Description LocalizedText `json:"description"`
	Icon        string        `json:"icon"`
	Color       string        `json:"color"`
	Order       int           `json:"order"`
}
