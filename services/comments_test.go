package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietcircle/community/models"
)

func TestCommentService_Comment(t *testing.T) {
	f := newFixture(t, Options{})
	author := f.account(t)
	other := f.account(t)
	p := f.post(t, author.ID, "hello world")

	v, err := f.svc.Comments.Comment(f.ctx, other.ID, p.ID, "  you got this  ")
	require.NoError(t, err)
	assert.NotZero(t, v.ID)
	assert.Equal(t, "you got this", v.Content)

	persona, err := f.svc.Identity.Find(f.ctx, other.ID)
	require.NoError(t, err)
	require.NotNil(t, persona)
	assert.Equal(t, persona.DisplayName, v.AuthorName)
	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", EventCommentCreated))
}

func TestCommentService_Validation(t *testing.T) {
	f := newFixture(t, Options{CommentMaxLength: 10})
	acc := f.account(t)
	p := f.post(t, acc.ID, "hello world")
	assert.Equal(t, 10, f.svc.Comments.MaxLength())

	_, err := f.svc.Comments.Comment(f.ctx, acc.ID, p.ID, "   ")
	requireKind(t, err, KindValidation)

	_, err = f.svc.Comments.Comment(f.ctx, acc.ID, p.ID, strings.Repeat("x", 11))
	requireKind(t, err, KindValidation)

	_, err = f.svc.Comments.Comment(f.ctx, acc.ID, p.ID, strings.Repeat("x", 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.count(t, &models.Comment{}, ""))
}

func TestCommentService_DefaultMaxLength(t *testing.T) {
	f := newFixture(t, Options{})
	assert.Equal(t, DefaultCommentMaxLength, f.svc.Comments.MaxLength())
}

func TestCommentService_MaxLengthCappedAtColumnSize(t *testing.T) {
	f := newFixture(t, Options{CommentMaxLength: 5000})
	require.Equal(t, models.CommentContentMaxLength, f.svc.Comments.MaxLength())

	acc := f.account(t)
	p := f.post(t, acc.ID, "hello world")

	_, err := f.svc.Comments.Comment(f.ctx, acc.ID, p.ID, strings.Repeat("x", models.CommentContentMaxLength+1))
	requireKind(t, err, KindValidation)

	v, err := f.svc.Comments.Comment(f.ctx, acc.ID, p.ID, strings.Repeat("x", models.CommentContentMaxLength))
	require.NoError(t, err)
	assert.Len(t, v.Content, models.CommentContentMaxLength)
}

func TestCommentService_MissingPost(t *testing.T) {
	f := newFixture(t, Options{})
	acc := f.account(t)

	_, err := f.svc.Comments.Comment(f.ctx, acc.ID, 31337, "anyone there?")
	requireKind(t, err, KindNotFound)
	assert.Zero(t, f.count(t, &models.Persona{}, ""))

	_, err = f.svc.Comments.ListForPost(f.ctx, 31337, 1, 10)
	requireKind(t, err, KindNotFound)
}

func TestCommentService_RequiresAccount(t *testing.T) {
	f := newFixture(t, Options{})
	acc := f.account(t)
	p := f.post(t, acc.ID, "hello world")

	_, err := f.svc.Comments.Comment(f.ctx, 0, p.ID, "hi there")
	requireKind(t, err, KindAuthRequired)
}

func TestCommentService_ListNewestFirst(t *testing.T) {
	f := newFixture(t, Options{})
	acc := f.account(t)
	p := f.post(t, acc.ID, "hello world")
	other := f.post(t, acc.ID, "another post")

	var ids []uint
	for _, c := range []string{"one", "two", "three"} {
		v, err := f.svc.Comments.Comment(f.ctx, acc.ID, p.ID, c)
		require.NoError(t, err)
		ids = append(ids, v.ID)
	}
	_, err := f.svc.Comments.Comment(f.ctx, acc.ID, other.ID, "elsewhere")
	require.NoError(t, err)

	page, err := f.svc.Comments.ListForPost(f.ctx, p.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Equal(t, ids[1], page.Items[1].ID)
	assert.NotEmpty(t, page.Items[0].AuthorName)
	assert.EqualValues(t, 3, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	page, err = f.svc.Comments.ListForPost(f.ctx, p.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[0], page.Items[0].ID)
}
