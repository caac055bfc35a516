package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalPages(t *testing.T) {
	for size := 0; size <= 40; size++ {
		for per := 1; per <= 9; per++ {
			want := (size + per - 1) / per
			if want < 1 {
				want = 1
			}
			got := Model{Size: size, PerPage: per}.TotalPages()
			assert.Equal(t, want, got, "size=%d per=%d", size, per)
		}
	}
}

func TestNavigation_IdempotentAtBoundaries(t *testing.T) {
	m := Model{Size: 10, PerPage: 7}

	assert.Equal(t, 0, m.Retreat(0))
	assert.Equal(t, 0, m.Retreat(m.Retreat(0)))

	last := m.TotalPages() - 1
	assert.Equal(t, last, m.Advance(last))
	assert.Equal(t, last, m.Advance(m.Advance(last)))

	assert.Equal(t, 1, m.Advance(0))
	assert.Equal(t, 0, m.Retreat(1))
}

func TestVisibleRange_LastPageLength(t *testing.T) {
	for size := 0; size <= 30; size++ {
		for per := 1; per <= 8; per++ {
			m := Model{Size: size, PerPage: per}
			for p := 0; p < m.TotalPages(); p++ {
				start, end := m.VisibleRange(p)
				assert.LessOrEqual(t, end-start, per)
			}

			start, end := m.VisibleRange(m.TotalPages() - 1)
			want := size % per
			if want == 0 && size > 0 {
				want = per
			}
			assert.Equal(t, want, end-start, "size=%d per=%d", size, per)
		}
	}
}

func TestTenSongsSevenPerPage(t *testing.T) {
	m := Model{Size: 10, PerPage: 7}
	assert.Equal(t, 2, m.TotalPages())

	start, end := m.VisibleRange(0)
	assert.Equal(t, 0, start)
	assert.Equal(t, 7, end)

	start, end = m.VisibleRange(1)
	assert.Equal(t, 7, start)
	assert.Equal(t, 10, end)

	p := m.Advance(0)
	assert.Equal(t, 1, p)
	p = m.Advance(p)
	assert.Equal(t, 1, p)

	idx, ok := m.SongIndex(1, 2)
	assert.True(t, ok)
	assert.Equal(t, 9, idx)
	_, ok = m.SongIndex(1, 3)
	assert.False(t, ok)
}

func TestEmptyCatalog(t *testing.T) {
	m := Model{Size: 0, PerPage: 7}
	assert.Equal(t, 1, m.TotalPages())

	start, end := m.VisibleRange(0)
	assert.Equal(t, 0, end-start)

	assert.False(t, m.CanGoBack(0))
	assert.False(t, m.CanGoForward(0))
	assert.Equal(t, 0, m.Advance(0))
	assert.Equal(t, 0, m.Retreat(0))

	for slot := 0; slot < 7; slot++ {
		_, ok := m.SongIndex(0, slot)
		assert.False(t, ok)
	}
}

func TestClamp(t *testing.T) {
	m := Model{Size: 10, PerPage: 7}
	assert.Equal(t, 0, m.Clamp(-3))
	assert.Equal(t, 1, m.Clamp(1))
	assert.Equal(t, 1, m.Clamp(99))
	assert.Equal(t, 0, Model{}.Clamp(5))
}
