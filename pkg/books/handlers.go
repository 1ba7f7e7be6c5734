package books

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/models"
	"github.com/hondana/hondana/pkg/uploads"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	bookService *Service
	uploadStore *uploads.Store
}

type paginatedBooks struct {
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	Results    []*models.Book `json:"results"`
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		Title:  params.Title,
		Author: params.Author,
	}
	// A publisher that trimmed down to nothing is stored as NULL, never as an
	// empty string.
	if params.Publisher != "" {
		book.Publisher = &params.Publisher
	}

	// The cover is written before the row is inserted, preserving the
	// original ordering: a crash in between can orphan a file, but a
	// committed row never points at a missing one.
	if file := params.FormFiles["cover_image"]; file != nil && file.Filename != "" {
		src, err := file.Open()
		if err != nil {
			return errors.WithStack(err)
		}
		defer src.Close()

		path, err := h.uploadStore.Save(file.Filename, src)
		if err != nil {
			return errors.WithStack(err)
		}
		book.CoverImagePath = &path
	}

	if err := h.bookService.CreateBook(ctx, book); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page := *params.Page
	pageSize := *params.PageSize
	offset := (page - 1) * pageSize

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:  &pageSize,
		Offset: &offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, newPaginatedBooks(books, total, page, pageSize)))
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	params := SearchBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page := *params.Page
	pageSize := *params.PageSize
	offset := (page - 1) * pageSize

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:  &pageSize,
		Offset: &offset,
		Search: &params.Query,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, newPaginatedBooks(books, total, page, pageSize)))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) cover(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if book.CoverImagePath == nil || *book.CoverImagePath == "" {
		return errcodes.NotFound("Cover")
	}

	// Sniff the content type from the stored bytes rather than trusting the
	// uploaded extension.
	mtype, err := mimetype.DetectFile(*book.CoverImagePath)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return errcodes.NotFound("Cover")
		}
		return errors.WithStack(err)
	}

	f, err := os.Open(*book.CoverImagePath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	return errors.WithStack(c.Stream(http.StatusOK, mtype.String(), f))
}

func newPaginatedBooks(books []*models.Book, total, page, pageSize int) paginatedBooks {
	if books == nil {
		books = []*models.Book{}
	}

	return paginatedBooks{
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
		Results:    books,
	}
}
