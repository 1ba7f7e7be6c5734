package books

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/hondana/hondana/pkg/binder"
	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/models"
	"github.com/hondana/hondana/pkg/uploads"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// Minimal but valid PNG header so content sniffing recognizes the payload.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
}

type testServer struct {
	echo  *echo.Echo
	store *uploads.Store
}

// setupTestServer sets up an Echo server with the book routes registered and
// uploads pointed at a per-test temp dir.
func setupTestServer(t *testing.T, db *bun.DB) *testServer {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	store := uploads.NewStore(t.TempDir())
	require.NoError(t, store.Init())

	RegisterRoutes(e, db, store)

	return &testServer{echo: e, store: store}
}

func (ts *testServer) execute(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.echo.ServeHTTP(rr, req)
	return rr
}

// newMultipartRequest builds a POST /books request from form fields plus an
// optional cover_image file.
func newMultipartRequest(t *testing.T, fields map[string]string, coverName string, coverContents []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	if coverName != "" {
		fw, err := w.CreateFormFile("cover_image", coverName)
		require.NoError(t, err)
		_, err = fw.Write(coverContents)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/books", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func countBooks(t *testing.T, db *bun.DB) int {
	t.Helper()
	count, err := db.NewSelect().Model((*models.Book)(nil)).Count(context.Background())
	require.NoError(t, err)
	return count
}

func TestCreateBook_ReturnsCreatedBook(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := newMultipartRequest(t, map[string]string{
		"title":     "Dune",
		"author":    "Frank Herbert",
		"publisher": "Chilton Books",
	}, "", nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var book models.Book
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))
	assert.NotZero(t, book.ID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
	require.NotNil(t, book.Publisher)
	assert.Equal(t, "Chilton Books", *book.Publisher)
	assert.Nil(t, book.CoverImagePath)

	assert.NotContains(t, rr.Body.String(), "created_at")
}

func TestCreateBook_TrimsFields(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := newMultipartRequest(t, map[string]string{
		"title":  "  Dune  ",
		"author": "\tFrank Herbert\n",
	}, "", nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var book models.Book
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Author)
}

func TestCreateBook_EmptyPublisherStoredAsNull(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := newMultipartRequest(t, map[string]string{
		"title":     "Dune",
		"author":    "Frank Herbert",
		"publisher": "",
	}, "", nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"publisher":null`)
}

func TestCreateBook_TitleTooShort(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := newMultipartRequest(t, map[string]string{
		"title":  "ab",
		"author": "Frank Herbert",
	}, "", nil)
	rr := ts.execute(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `\"title\" length must be greater than or equal to 3 characters`)
	assert.Equal(t, 0, countBooks(t, db), "a rejected payload must not create a row")
}

func TestCreateBook_WhitespaceTitleFailsValidation(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := newMultipartRequest(t, map[string]string{
		"title":  "     ",
		"author": "Frank Herbert",
	}, "", nil)
	rr := ts.execute(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `\"title\" is required`)
	assert.Equal(t, 0, countBooks(t, db))
}

func TestCreateBook_MissingAuthor(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := newMultipartRequest(t, map[string]string{
		"title": "Dune",
	}, "", nil)
	rr := ts.execute(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `\"author\" is required`)
}

func TestCreateBook_ShortPublisherFailsValidation(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := newMultipartRequest(t, map[string]string{
		"title":     "Dune",
		"author":    "Frank Herbert",
		"publisher": "ab",
	}, "", nil)
	rr := ts.execute(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `\"publisher\"`)
	assert.Equal(t, 0, countBooks(t, db))
}

func TestCreateBook_SavesCoverImage(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := newMultipartRequest(t, map[string]string{
		"title":  "Dune",
		"author": "Frank Herbert",
	}, "cover.png", pngBytes)
	rr := ts.execute(req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var book models.Book
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))
	require.NotNil(t, book.CoverImagePath)

	// Stored under the uploads dir, with a random prefix in front of the
	// original filename.
	assert.Equal(t, ts.store.Dir(), filepath.Dir(*book.CoverImagePath))
	assert.True(t, strings.HasSuffix(*book.CoverImagePath, "_cover.png"), *book.CoverImagePath)

	saved, err := os.ReadFile(*book.CoverImagePath)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, saved)
}

func TestListBooks_Defaults(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)
	seedBooks(t, db, 12)

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp paginatedBooks
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 10, resp.PageSize)
	assert.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Results, 10)
	assert.Equal(t, "Book 1", resp.Results[0].Title)
	assert.Equal(t, "Book 10", resp.Results[9].Title)
}

func TestListBooks_LastPartialPage(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)
	seedBooks(t, db, 12)

	req := httptest.NewRequest(http.MethodGet, "/books?page=3&page_size=5", nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp paginatedBooks
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.Total)
	assert.Equal(t, 3, resp.Page)
	assert.Equal(t, 5, resp.PageSize)
	assert.Equal(t, 3, resp.TotalPages)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Book 11", resp.Results[0].Title)
	assert.Equal(t, "Book 12", resp.Results[1].Title)
}

func TestListBooks_PageBeyondEnd(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)
	seedBooks(t, db, 3)

	req := httptest.NewRequest(http.MethodGet, "/books?page=5", nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp paginatedBooks
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 1, resp.TotalPages)
	assert.Empty(t, resp.Results)
	assert.Contains(t, rr.Body.String(), `"results":[]`)
}

func TestListBooks_EmptyTable(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"total":0`)
	assert.Contains(t, rr.Body.String(), `"total_pages":0`)
	assert.Contains(t, rr.Body.String(), `"results":[]`)
}

func TestListBooks_PageZeroIsRejected(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := httptest.NewRequest(http.MethodGet, "/books?page=0", nil)
	rr := ts.execute(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `\"page\" must be greater than or equal to 1`)
}

func TestListBooks_PageSizeBoundsAreRejected(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	for _, size := range []string{"0", "51"} {
		req := httptest.NewRequest(http.MethodGet, "/books?page_size="+size, nil)
		rr := ts.execute(req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "page_size=%s", size)
		assert.Contains(t, rr.Body.String(), `\"page_size\"`)
	}
}

func TestListBooks_NonNumericPageIsRejected(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := httptest.NewRequest(http.MethodGet, "/books?page=abc", nil)
	rr := ts.execute(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestSearchBooks_MatchesSubstring(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)
	svc := NewService(db)
	ctx := context.Background()

	require.NoError(t, svc.CreateBook(ctx, &models.Book{Title: "Dune", Author: "Frank Herbert"}))
	require.NoError(t, svc.CreateBook(ctx, &models.Book{Title: "Neuromancer", Author: "William Gibson"}))

	req := httptest.NewRequest(http.MethodGet, "/books/search?query=dun", nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp paginatedBooks
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Dune", resp.Results[0].Title)
}

func TestSearchBooks_PaginatesMatches(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)
	seedBooks(t, db, 12)

	req := httptest.NewRequest(http.MethodGet, "/books/search?query=book&page=2&page_size=5", nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp paginatedBooks
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	require.Len(t, resp.Results, 5)
	assert.Equal(t, "Book 6", resp.Results[0].Title)
}

func TestSearchBooks_MissingQueryIsRejected(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := httptest.NewRequest(http.MethodGet, "/books/search", nil)
	rr := ts.execute(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `\"query\" is required`)
}

func TestSearchBooks_ShortQueryIsRejected(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	req := httptest.NewRequest(http.MethodGet, "/books/search?query=ab", nil)
	rr := ts.execute(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `\"query\" length must be greater than or equal to 3 characters`)
}

func TestSearchBooks_NoMatches(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)
	seedBooks(t, db, 3)

	req := httptest.NewRequest(http.MethodGet, "/books/search?query=zzzzzz", nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"total":0`)
	assert.Contains(t, rr.Body.String(), `"total_pages":0`)
	assert.Contains(t, rr.Body.String(), `"results":[]`)
}

func TestRetrieveBook_ReturnsBook(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)
	books := seedBooks(t, db, 1)

	req := httptest.NewRequest(http.MethodGet, "/books/"+strconv.Itoa(books[0].ID), nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var book models.Book
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))
	assert.Equal(t, books[0].ID, book.ID)
	assert.Equal(t, "Book 1", book.Title)
}

func TestRetrieveBook_NotFoundResponse(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	for _, path := range []string{"/books/99999", "/books/not-a-number"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := ts.execute(req)

		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.Contains(t, rr.Body.String(), "not_found")
	}
}

func TestCoverImage_StreamedWithSniffedContentType(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)

	createReq := newMultipartRequest(t, map[string]string{
		"title":  "Dune",
		"author": "Frank Herbert",
	}, "cover.png", pngBytes)
	createRR := ts.execute(createReq)
	require.Equal(t, http.StatusCreated, createRR.Code, createRR.Body.String())

	var book models.Book
	require.NoError(t, json.Unmarshal(createRR.Body.Bytes(), &book))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/books/%d/cover", book.ID), nil)
	rr := ts.execute(req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get(echo.HeaderContentType))
	assert.Equal(t, pngBytes, rr.Body.Bytes())
}

func TestCoverImage_NotFoundWhenBookHasNoCover(t *testing.T) {
	db := setupTestDB(t)
	ts := setupTestServer(t, db)
	books := seedBooks(t, db, 1)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/books/%d/cover", books[0].ID), nil)
	rr := ts.execute(req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
