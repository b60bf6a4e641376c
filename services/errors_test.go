package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad %s", "input")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("post %d not found", 1)))
	assert.Equal(t, KindBusinessRule, KindOf(BusinessRule("no")))
	assert.Equal(t, KindAuthRequired, KindOf(AuthRequired("who")))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("mine")))
	assert.Equal(t, KindInternal, KindOf(errors.New("raw")))

	wrapped := fmt.Errorf("outer: %w", NotFound("post 9 not found"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "post 9 not found", MessageOf(wrapped))
}

func TestInternal(t *testing.T) {
	assert.NoError(t, Internal(nil))

	rule := BusinessRule("post already supported")
	assert.Same(t, rule, Internal(rule))

	cause := errors.New("disk full")
	err := Internal(cause)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "unexpected error", MessageOf(err))
	assert.Equal(t, "internal: unexpected error: disk full", err.Error())
}

func TestNormalizePage(t *testing.T) {
	cases := []struct{ page, size, wantPage, wantSize int }{
		{0, 0, 1, 10},
		{-3, 5, 1, 5},
		{2, 100, 2, 100},
		{4, 101, 4, 10},
	}
	for _, tc := range cases {
		p, s := NormalizePage(tc.page, tc.size)
		assert.Equal(t, tc.wantPage, p)
		assert.Equal(t, tc.wantSize, s)
	}
}
