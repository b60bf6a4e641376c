package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/quietcircle/community/config"
	"github.com/quietcircle/community/models"
	"github.com/quietcircle/community/services"
	"github.com/quietcircle/community/utils"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type RouterSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	users  int
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	dir := s.T().TempDir()
	cfg := config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		GinPath:            filepath.Join(dir, "gin.log"),
		DBDriver:           "sqlite",
		DatabaseURI:        filepath.Join(dir, "community.db"),
		LogLevel:           "silent",
		RateLimitPerMinute: 1000,
		AdminUsernames:     []string{"moderator"},
	}
	config.Set(cfg)
	utils.PasswordCost = bcrypt.MinCost

	db, err := config.OpenDatabase(config.Get())
	s.Require().NoError(err)
	s.Require().NoError(config.Migrate(db, models.All()...))
	s.db = db

	svc := services.NewRegistry(db, services.Options{})
	_, err = svc.Tags.Seed(context.Background(), db)
	s.Require().NoError(err)
	s.router = SetupRouter(svc)
}

func (s *RouterSuite) TearDownTest() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *RouterSuite) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *RouterSuite) registerAs(username string) string {
	w, env := s.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": username, "password": "secret-pass"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	s.Require().NotEmpty(data.Token)
	return data.Token
}

func (s *RouterSuite) register() string {
	s.users++
	return s.registerAs(fmt.Sprintf("member_%d", s.users))
}

func (s *RouterSuite) createPost(token, content string, tags ...string) services.PostDetail {
	w, env := s.do(http.MethodPost, "/api/community/posts", token, gin.H{"content": content, "tags": tags})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var post services.PostDetail
	s.Require().NoError(json.Unmarshal(env.Data, &post))
	return post
}

func (s *RouterSuite) TestHealthAndTags() {
	w, _ := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, w.Code)

	w, env := s.do(http.MethodGet, "/api/community/tags", "", nil)
	s.Equal(http.StatusOK, w.Code)
	var data struct {
		Items []string `json:"items"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	s.Equal([]string{"VICTORY", "VENT", "TRIGGERS", "ANXIETY", "GRATITUDE", "RELATIONSHIPS", "WORK"}, data.Items)

	w, env = s.do(http.MethodGet, "/nowhere", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal(40400, env.Code)
}

func (s *RouterSuite) TestAuthFlow() {
	token := s.registerAs("river_01")

	w, env := s.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "river_01", "password": "secret-pass"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("username already taken", env.Message)

	w, _ = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "river_01", "password": "wrong-pass"})
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "river_01", "password": "secret-pass"})
	s.Equal(http.StatusOK, w.Code)

	w, env = s.do(http.MethodGet, "/api/auth/me", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var me services.MeInfo
	s.Require().NoError(json.Unmarshal(env.Data, &me))
	s.Equal("river_01", me.Username)
	s.Nil(me.PersonaID)

	w, env = s.do(http.MethodPost, "/api/community/persona", token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var persona struct {
		ID          uint   `json:"id"`
		DisplayName string `json:"display_name"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &persona))
	s.NotEmpty(persona.DisplayName)

	_, env = s.do(http.MethodGet, "/api/auth/me", token, nil)
	s.Require().NoError(json.Unmarshal(env.Data, &me))
	s.Require().NotNil(me.PersonaID)
	s.Equal(persona.ID, *me.PersonaID)

	w, _ = s.do(http.MethodPost, "/api/auth/logout", token, nil)
	s.Equal(http.StatusOK, w.Code)
	w, env = s.do(http.MethodGet, "/api/auth/me", token, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal(40104, env.Code)
}

func (s *RouterSuite) TestPostSupportAndComment() {
	author := s.register()
	fan := s.register()

	post := s.createPost(author, "hello world", "VICTORY")
	s.Equal([]string{"VICTORY"}, post.Tags)
	s.NotEmpty(post.AuthorName)
	supportPath := fmt.Sprintf("/api/community/posts/%d/support", post.ID)

	w, _ := s.do(http.MethodPost, supportPath, fan, nil)
	s.Equal(http.StatusNoContent, w.Code)
	w, env := s.do(http.MethodPost, supportPath, fan, nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal("post already supported", env.Message)

	w, env = s.do(http.MethodGet, fmt.Sprintf("/api/community/posts/%d", post.ID), "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var got services.PostDetail
	s.Require().NoError(json.Unmarshal(env.Data, &got))
	s.EqualValues(1, got.SupportCount)

	w, _ = s.do(http.MethodDelete, supportPath, fan, nil)
	s.Equal(http.StatusNoContent, w.Code)
	w, _ = s.do(http.MethodDelete, supportPath, fan, nil)
	s.Equal(http.StatusNoContent, w.Code)

	commentsPath := fmt.Sprintf("/api/community/posts/%d/comments", post.ID)
	w, _ = s.do(http.MethodPost, commentsPath, fan, gin.H{"content": "you got this"})
	s.Equal(http.StatusCreated, w.Code)
	w, _ = s.do(http.MethodPost, commentsPath, fan, gin.H{"content": "   "})
	s.Equal(http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodGet, commentsPath, "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var comments services.Page[services.CommentView]
	s.Require().NoError(json.Unmarshal(env.Data, &comments))
	s.Require().Len(comments.Items, 1)
	s.Equal("you got this", comments.Items[0].Content)

	w, env = s.do(http.MethodGet, "/api/community/posts?page=1&page_size=5", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var feed services.Page[services.PostSummary]
	s.Require().NoError(json.Unmarshal(env.Data, &feed))
	s.Require().Len(feed.Items, 1)
	s.EqualValues(0, feed.Items[0].SupportCount)
	s.Equal(5, feed.Pagination.PageSize)
}

func (s *RouterSuite) TestPostValidation() {
	token := s.register()

	cases := []struct {
		body   gin.H
		status int
		msg    string
	}{
		{gin.H{"content": ""}, http.StatusBadRequest, "content must not be blank"},
		{gin.H{"content": "hi"}, http.StatusUnprocessableEntity, "content must be at least 3 characters"},
		{gin.H{"content": "hello world", "tags": []string{"HAPPINESS"}}, http.StatusUnprocessableEntity, "invalid tag: HAPPINESS"},
		{gin.H{"content": "hello world", "tags": []string{"VICTORY", "VENT", "TRIGGERS", "ANXIETY", "GRATITUDE", "WORK"}}, http.StatusUnprocessableEntity, "a post cannot have more than 5 tags"},
	}
	for _, tc := range cases {
		w, env := s.do(http.MethodPost, "/api/community/posts", token, tc.body)
		s.Equal(tc.status, w.Code, tc.msg)
		s.Equal(tc.msg, env.Message)
	}

	var n int64
	s.Require().NoError(s.db.Model(&models.Post{}).Count(&n).Error)
	s.Zero(n)
}

func (s *RouterSuite) TestEscapedMarkupIsStripped() {
	token := s.register()
	post := s.createPost(token, "&lt;b&gt;brave&lt;/b&gt; step &lt;script&gt;alert(1)&lt;/script&gt;")
	s.Equal("brave step", post.Content)

	commentsPath := fmt.Sprintf("/api/community/posts/%d/comments", post.ID)
	w, _ := s.do(http.MethodPost, commentsPath, token, gin.H{"content": "&lt;i&gt;thanks&lt;/i&gt;"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var stored models.Post
	s.Require().NoError(s.db.First(&stored, post.ID).Error)
	s.NotContains(stored.Content, "<")
	var comment models.Comment
	s.Require().NoError(s.db.Where("post_id = ?", post.ID).First(&comment).Error)
	s.Equal("thanks", comment.Content)
}

func (s *RouterSuite) TestAuthorizationErrors() {
	w, _ := s.do(http.MethodPost, "/api/community/posts", "", gin.H{"content": "hello world"})
	s.Equal(http.StatusUnauthorized, w.Code)

	token := s.register()
	w, _ = s.do(http.MethodPost, "/api/community/posts/999/support", token, nil)
	s.Equal(http.StatusNotFound, w.Code)
	w, env := s.do(http.MethodPost, "/api/community/posts/abc/support", token, nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(40010, env.Code)
	w, _ = s.do(http.MethodGet, "/api/community/posts/999/comments", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterSuite) TestDeletePost() {
	author := s.register()
	other := s.register()
	admin := s.registerAs("moderator")
	path := func(id uint) string { return fmt.Sprintf("/api/community/posts/%d", id) }

	post := s.createPost(author, "temporary thought")
	w, _ := s.do(http.MethodDelete, path(post.ID), other, nil)
	s.Equal(http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodDelete, path(post.ID), author, nil)
	s.Equal(http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, path(post.ID), "", nil)
	s.Equal(http.StatusNotFound, w.Code)

	post = s.createPost(author, "moderated thought")
	w, _ = s.do(http.MethodDelete, path(post.ID), admin, nil)
	s.Equal(http.StatusOK, w.Code)
}
