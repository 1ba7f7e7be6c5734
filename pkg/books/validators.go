package books

import "mime/multipart"

type CreateBookPayload struct {
	Title     string `form:"title" json:"title" mod:"trim" validate:"required,min=3,max=100"`
	Author    string `form:"author" json:"author" mod:"trim" validate:"required,min=3,max=100"`
	Publisher string `form:"publisher" json:"publisher,omitempty" mod:"trim" validate:"omitempty,min=3,max=100"`

	// Populated by the binder from the multipart form. cover_image is the
	// only file field this API accepts.
	FormFiles map[string]*multipart.FileHeader `form:"-" json:"-"`
}

type ListBooksQuery struct {
	Page     *int `query:"page" json:"page,omitempty" default:"1" validate:"omitempty,min=1"`
	PageSize *int `query:"page_size" json:"page_size,omitempty" default:"10" validate:"omitempty,min=1,max=50"`
}

type SearchBooksQuery struct {
	Query    string `query:"query" json:"query" mod:"trim" validate:"required,min=3,max=100"`
	Page     *int   `query:"page" json:"page,omitempty" default:"1" validate:"omitempty,min=1"`
	PageSize *int   `query:"page_size" json:"page_size,omitempty" default:"10" validate:"omitempty,min=1,max=50"`
}
