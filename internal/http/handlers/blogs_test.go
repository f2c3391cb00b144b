package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/agencysite/internal/cache"
	"github.com/geocoder89/agencysite/internal/domain/blog"
	"github.com/geocoder89/agencysite/internal/http/handlers"
	"github.com/geocoder89/agencysite/internal/repo/memory"
	"github.com/geocoder89/agencysite/internal/storage/objectstore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blogPage struct {
	Items      []blog.Blog `json:"items"`
	Count      int         `json:"count"`
	NextCursor string      `json:"nextCursor"`
}

func newBlogsRouter(repo handlers.BlogsStore, images handlers.ImageUploader) *gin.Engine {
	h := handlers.NewBlogsHandler(repo, cache.New(time.Minute), images, 1<<10, nil)

	r := newTestRouter()
	r.POST("/api/user/addblog", h.Create)
	r.GET("/api/user/getallblog", h.List)
	r.GET("/api/user/getblog/:id", h.Get)
	r.POST("/api/user/blog-image", h.UploadImage)
	return r
}

func TestBlogs_CursorPagination(t *testing.T) {
	repo := memory.NewBlogsRepo()
	r := newBlogsRouter(repo, nil)

	for _, title := range []string{"First post", "Second post", "Third post"} {
		w := doJSON(r, http.MethodPost, "/api/user/addblog", `{"title":"`+title+`","content":"body"}`)
		require.Equal(t, http.StatusCreated, w.Code, "create: body=%s", w.Body.String())
	}

	w := doJSON(r, http.MethodGet, "/api/user/getallblog?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code, "page 1: body=%s", w.Body.String())

	var first blogPage
	decodeBody(t, w, &first)
	require.Equal(t, 2, first.Count)
	require.NotEmpty(t, first.NextCursor)

	w = doJSON(r, http.MethodGet, "/api/user/getallblog?limit=2&cursor="+first.NextCursor, "")
	var second blogPage
	decodeBody(t, w, &second)
	assert.Equal(t, 1, second.Count)
	assert.Empty(t, second.NextCursor)

	seen := map[string]bool{}
	for _, b := range append(first.Items, second.Items...) {
		assert.False(t, seen[b.ID], "blog %s returned twice", b.ID)
		seen[b.ID] = true
	}
}

func TestBlogs_ListRejectsBadParams(t *testing.T) {
	r := newBlogsRouter(memory.NewBlogsRepo(), nil)

	for _, q := range []string{"?limit=0", "?limit=500", "?limit=abc", "?cursor=garbage"} {
		w := doJSON(r, http.MethodGet, "/api/user/getallblog"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestBlogs_ListCacheIsInvalidatedOnCreate(t *testing.T) {
	r := newBlogsRouter(memory.NewBlogsRepo(), nil)

	w := doJSON(r, http.MethodGet, "/api/user/getallblog", "")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"), "first read")
	w = doJSON(r, http.MethodGet, "/api/user/getallblog", "")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"), "second read")

	doJSON(r, http.MethodPost, "/api/user/addblog", `{"title":"Fresh post","content":"body"}`)

	w = doJSON(r, http.MethodGet, "/api/user/getallblog", "")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"), "read after create")

	var page blogPage
	decodeBody(t, w, &page)
	assert.Equal(t, 1, page.Count, "stale list served")
}

func TestBlogs_GetWithETag(t *testing.T) {
	repo := memory.NewBlogsRepo()
	b, err := repo.Create(context.Background(), blog.CreateRequest{Title: "Hello", Content: "world"})
	require.NoError(t, err)
	r := newBlogsRouter(repo, nil)

	w := doJSON(r, http.MethodGet, "/api/user/getblog/"+b.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/user/getblog/"+b.ID, nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code, "conditional get")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"), "second read should come from cache")

	w = doJSON(r, http.MethodGet, "/api/user/getblog/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fakeUploader struct {
	gotType string
	gotSize int64
}

func (f *fakeUploader) UploadImage(_ context.Context, prefix, contentType string, r io.Reader, size int64) (string, error) {
	if contentType != "image/png" {
		return "", objectstore.ErrUnsupportedType
	}
	f.gotType = contentType
	f.gotSize = size
	_, _ = io.Copy(io.Discard, r)
	return "http://cdn.test/blog-images/" + prefix + "/x.png", nil
}

func multipartImage(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "upload.bin")
	require.NoError(t, err)
	_, _ = fw.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/user/blog-image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestBlogs_UploadImage(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	tests := []struct {
		name     string
		uploader *fakeUploader
		field    string
		data     []byte
		want     int
	}{
		{"not configured", nil, "image", png, http.StatusServiceUnavailable},
		{"png", &fakeUploader{}, "image", png, http.StatusCreated},
		{"sniffed text is rejected", &fakeUploader{}, "image", []byte("just some text"), http.StatusUnsupportedMediaType},
		{"too large", &fakeUploader{}, "image", append(png, bytes.Repeat([]byte{1}, 2<<10)...), http.StatusRequestEntityTooLarge},
		{"wrong field", &fakeUploader{}, "file", png, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var images handlers.ImageUploader
			if tt.uploader != nil {
				images = tt.uploader
			}
			r := newBlogsRouter(memory.NewBlogsRepo(), images)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, multipartImage(t, tt.field, tt.data))
			require.Equal(t, tt.want, w.Code, "body=%s", w.Body.String())

			if tt.want == http.StatusCreated {
				assert.Equal(t, "image/png", tt.uploader.gotType)
				assert.Equal(t, int64(len(tt.data)), tt.uploader.gotSize)
			}
		})
	}
}
