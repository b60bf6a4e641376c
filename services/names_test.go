package services

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var displayNamePattern = regexp.MustCompile(`^[A-Za-z]+ [A-Za-z]+ #\d{4}$`)

func never(string) (bool, error) { return false, nil }

func TestGenerateDisplayName_Pattern(t *testing.T) {
	for i := 0; i < 50; i++ {
		name, err := GenerateDisplayName(CryptoSource{}, never, time.Now)
		require.NoError(t, err)
		assert.Regexp(t, displayNamePattern, name)
	}
}

func TestGenerateDisplayName_Deterministic(t *testing.T) {
	name, err := GenerateDisplayName(&seqSource{vals: []int{0, 0, 0}}, never, time.Now)
	require.NoError(t, err)
	assert.Equal(t, "Phoenix Curious #1000", name)

	name, err = GenerateDisplayName(&seqSource{vals: []int{5, 5, 8999}}, never, time.Now)
	require.NoError(t, err)
	assert.Equal(t, "Star Silent #9999", name)
}

func TestGenerateDisplayName_RetriesOnCollision(t *testing.T) {
	calls := 0
	exists := func(name string) (bool, error) {
		calls++
		return calls <= 3, nil
	}
	name, err := GenerateDisplayName(&seqSource{vals: []int{1, 2, 3}}, exists, time.Now)
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Regexp(t, displayNamePattern, name)
}

func TestGenerateDisplayName_FallsBackAfterMaxAttempts(t *testing.T) {
	calls := 0
	always := func(string) (bool, error) {
		calls++
		return true, nil
	}
	now := func() time.Time { return time.UnixMilli(1700000000123) }

	name, err := GenerateDisplayName(CryptoSource{}, always, now)
	require.NoError(t, err)
	assert.Equal(t, DisplayNameAttempts, calls)
	assert.Equal(t, "Phoenix 1700000000123", name)
}

func TestGenerateDisplayName_PropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := GenerateDisplayName(CryptoSource{}, func(string) (bool, error) { return false, boom }, time.Now)
	assert.ErrorIs(t, err, boom)
}

func TestCryptoSource_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		v := CryptoSource{}.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}
