package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	in := OrderCursor{CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), ID: 77}

	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.ID, out.ID)
}

func TestDecodeEmptyCursorStartsAtNewest(t *testing.T) {
	out, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, out.CreatedAt.After(time.Now()))
}

func TestDecodeGarbledCursor(t *testing.T) {
	_, err := DecodeCursor("%%%not-base64")
	assert.Error(t, err)
}

func TestNewOffsetPage(t *testing.T) {
	page := newOffsetPage([]int{1, 2}, 41, 2, 20)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(41), page.Total)

	exact := newOffsetPage(nil, 40, 1, 20)
	assert.Equal(t, 2, exact.TotalPages)
}
