package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID             int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt      time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"-"`
	Title          string    `bun:",nullzero" json:"title"`
	Author         string    `bun:",nullzero" json:"author"`
	Publisher      *string   `json:"publisher"`
	CoverImagePath *string   `json:"cover_image_path"`
}
