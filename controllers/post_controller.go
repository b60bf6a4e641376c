package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quietcircle/community/config"
	"github.com/quietcircle/community/middleware"
	"github.com/quietcircle/community/models"
	"github.com/quietcircle/community/services"
	"github.com/quietcircle/community/utils"
)

// PostController exposes posts, supports and comments.
type PostController struct {
	posts    *services.PostService
	supports *services.SupportLedger
	comments *services.CommentService
	cacheTTL time.Duration
}

// NewPostController creates a new PostController instance. cacheTTL <= 0 disables list caching.
func NewPostController(posts *services.PostService, supports *services.SupportLedger, comments *services.CommentService, cacheTTL time.Duration) *PostController {
	return &PostController{posts: posts, supports: supports, comments: comments, cacheTTL: cacheTTL}
}

// CreatePost publishes a post as the caller's persona.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	detail, err := p.posts.Create(ctx.Request.Context(), middleware.AccountID(ctx), utils.SanitizeText(req.Content), req.Tags)
	if err != nil {
		respondError(ctx, err)
		return
	}

	utils.InvalidateFeed()
	utils.Created(ctx, detail)
}

// Feed returns posts newest first.
func (p *PostController) Feed(ctx *gin.Context) {
	page, size := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	cacheKey := utils.FeedCacheKey(page, size)
	if p.serveCached(ctx, cacheKey) {
		return
	}

	result, err := p.posts.Feed(ctx.Request.Context(), page, size)
	if err != nil {
		respondError(ctx, err)
		return
	}
	p.store(cacheKey, result)
	utils.Success(ctx, result)
}

// GetPost returns one post.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	detail, err := p.posts.Get(ctx.Request.Context(), postID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, detail)
}

// DeletePost removes a post. Authors may delete their own posts; admins any.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := p.posts.Delete(ctx.Request.Context(), middleware.AccountID(ctx), postID, isAdmin(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateFeed()
	utils.InvalidateComments(postID)
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// Support endorses a post.
func (p *PostController) Support(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := p.supports.Support(ctx.Request.Context(), middleware.AccountID(ctx), postID); err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateFeed()
	ctx.Status(http.StatusNoContent)
}

// Unsupport withdraws an endorsement. Withdrawing a missing endorsement succeeds.
func (p *PostController) Unsupport(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := p.supports.Unsupport(ctx.Request.Context(), middleware.AccountID(ctx), postID); err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateFeed()
	ctx.Status(http.StatusNoContent)
}

// CreateComment attaches a comment to a post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	view, err := p.comments.Comment(ctx.Request.Context(), middleware.AccountID(ctx), postID, utils.SanitizeText(req.Content))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.InvalidateComments(postID)
	utils.Created(ctx, view)
}

// ListComments returns a post's comments newest first.
func (p *PostController) ListComments(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	page, size := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	cacheKey := utils.CommentsCacheKey(postID, page, size)
	if p.serveCached(ctx, cacheKey) {
		return
	}

	result, err := p.comments.ListForPost(ctx.Request.Context(), postID, page, size)
	if err != nil {
		respondError(ctx, err)
		return
	}
	p.store(cacheKey, result)
	utils.Success(ctx, result)
}

func (p *PostController) serveCached(ctx *gin.Context, key string) bool {
	if p.cacheTTL <= 0 {
		return false
	}
	b, ok := utils.CacheGetBytes(key)
	if !ok {
		return false
	}
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
	return true
}

// store caches the full envelope so hits can be written without re-encoding.
func (p *PostController) store(key string, data interface{}) {
	if p.cacheTTL <= 0 {
		return
	}
	utils.CacheSetJSON(key, utils.JSONResponse{Code: 0, Message: "success", Data: data}, p.cacheTTL)
}

func isAdmin(ctx *gin.Context) bool {
	if role, _ := ctx.Get(middleware.ContextRoleKey); role == models.RoleAdmin {
		return true
	}
	username, _ := ctx.Get(middleware.ContextUsernameKey)
	name, _ := username.(string)
	return name != "" && config.Get().IsAdmin(name)
}
