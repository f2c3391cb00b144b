package handlers

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/geocoder89/agencysite/internal/cache"
	"github.com/geocoder89/agencysite/internal/domain/blog"
	"github.com/geocoder89/agencysite/internal/storage/objectstore"
	"github.com/geocoder89/agencysite/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultBlogPageSize = 10
	maxBlogPageSize     = 50
	blogImagePrefix     = "blogs"
	blogImageField      = "image"
)

type BlogsStore interface {
	Create(ctx context.Context, req blog.CreateRequest) (blog.Blog, error)
	GetByID(ctx context.Context, id string) (blog.Blog, error)
	ListPage(ctx context.Context, page blog.Page) ([]blog.Blog, bool, error)
}

// ImageUploader is nil when object storage is not configured.
type ImageUploader interface {
	UploadImage(ctx context.Context, prefix, contentType string, r io.Reader, size int64) (string, error)
}

type BlogsHandler struct {
	repo          BlogsStore
	cache         *cache.Cache
	images        ImageUploader
	maxImageBytes int64
	log           *slog.Logger
}

type blogListResponse struct {
	Items      []blog.Blog `json:"items"`
	Count      int         `json:"count"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

func NewBlogsHandler(repo BlogsStore, c *cache.Cache, images ImageUploader, maxImageBytes int64, log *slog.Logger) *BlogsHandler {
	if log == nil {
		log = slog.Default()
	}
	if maxImageBytes <= 0 {
		maxImageBytes = 5 << 20
	}
	return &BlogsHandler{
		repo:          repo,
		cache:         c,
		images:        images,
		maxImageBytes: maxImageBytes,
		log:           log,
	}
}

func (h *BlogsHandler) Create(ctx *gin.Context) {
	var req blog.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	b, err := h.repo.Create(ctx.Request.Context(), req)
	if err != nil {
		RespondInternal(ctx, "Could not create blog")
		return
	}

	if h.cache != nil {
		h.cache.DeletePrefix(utils.BlogsListPrefix)
	}

	ctx.JSON(http.StatusCreated, b)
}

func (h *BlogsHandler) List(ctx *gin.Context) {
	limit := defaultBlogPageSize
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxBlogPageSize {
			RespondBadRequest(ctx, "Invalid limit", gin.H{"limit": "must be between 1 and " + strconv.Itoa(maxBlogPageSize)})
			return
		}
		limit = n
	}

	rawCursor := ctx.Query("cursor")
	page := blog.Page{Limit: limit}

	if rawCursor != "" {
		cur, err := utils.DecodeBlogCursor(rawCursor)
		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}
		page.AfterCreatedAt = cur.CreatedAt
		page.AfterID = cur.ID
	}

	key := utils.BuildBlogsListCacheKey(limit, rawCursor)
	if h.cache != nil {
		if v, ok := h.cache.Get(key); ok {
			if resp, ok := v.(blogListResponse); ok {
				ctx.Header("X-Cache", "HIT")
				RespondJSONWithETag(ctx, http.StatusOK, resp)
				return
			}
		}
	}

	items, hasMore, err := h.repo.ListPage(ctx.Request.Context(), page)
	if err != nil {
		RespondInternal(ctx, "Could not list blogs")
		return
	}

	resp := blogListResponse{Items: items, Count: len(items)}

	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		next, err := utils.EncodeBlogCursor(last.CreatedAt, last.ID)
		if err != nil {
			RespondInternal(ctx, "Could not build cursor")
			return
		}
		resp.NextCursor = next
	}

	if h.cache != nil {
		h.cache.Set(key, resp)
		ctx.Header("X-Cache", "MISS")
	}

	RespondJSONWithETag(ctx, http.StatusOK, resp)
}

// Get serves one post. Posts are never edited, so cached entries only expire.
func (h *BlogsHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	key := utils.BuildBlogCacheKey(id)

	if h.cache != nil {
		if v, ok := h.cache.Get(key); ok {
			if b, ok := v.(blog.Blog); ok {
				ctx.Header("X-Cache", "HIT")
				RespondJSONWithETag(ctx, http.StatusOK, b)
				return
			}
		}
	}

	b, err := h.repo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			RespondNotFound(ctx, "Blog not found")
			return
		}
		RespondInternal(ctx, "Could not fetch blog")
		return
	}

	if h.cache != nil {
		h.cache.Set(key, b)
		ctx.Header("X-Cache", "MISS")
	}

	RespondJSONWithETag(ctx, http.StatusOK, b)
}

// UploadImage accepts a multipart form with the file in the "image" field.
func (h *BlogsHandler) UploadImage(ctx *gin.Context) {
	if h.images == nil {
		RespondUnavailable(ctx, "Image uploads are not configured")
		return
	}

	fh, err := ctx.FormFile(blogImageField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Image too large", nil)
			return
		}
		RespondBadRequest(ctx, "Missing image file", gin.H{"field": blogImageField})
		return
	}

	if fh.Size > h.maxImageBytes {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Image too large", nil)
		return
	}

	f, err := fh.Open()
	if err != nil {
		RespondBadRequest(ctx, "Could not read image", nil)
		return
	}
	defer f.Close()

	// Trust the bytes, not the client's Content-Type.
	br := bufio.NewReaderSize(f, 512)
	head, _ := br.Peek(512)
	contentType := http.DetectContentType(head)

	url, err := h.images.UploadImage(ctx.Request.Context(), blogImagePrefix, contentType, br, fh.Size)
	if err != nil {
		if errors.Is(err, objectstore.ErrUnsupportedType) {
			RespondError(ctx, http.StatusUnsupportedMediaType, "unsupported_media_type", "Only jpeg, png, gif and webp images are accepted", nil)
			return
		}
		h.log.ErrorContext(ctx.Request.Context(), "blog image upload failed", "err", err)
		RespondInternal(ctx, "Could not upload image")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"imageUrl": url})
}
