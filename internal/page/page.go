// Package page computes which part of the song list is visible on the
// control surface. Everything here is pure arithmetic over the catalog size,
// the page size and the current page.
package page

// Model describes a catalog of Size songs split into pages of PerPage songs.
type Model struct {
	Size    int
	PerPage int
}

func (m Model) perPage() int {
	if m.PerPage < 1 {
		return 1
	}
	return m.PerPage
}

func (m Model) size() int {
	if m.Size < 0 {
		return 0
	}
	return m.Size
}

// TotalPages returns max(1, ceil(Size/PerPage)). An empty catalog still has one page.
func (m Model) TotalPages() int {
	per := m.perPage()
	total := (m.size() + per - 1) / per
	if total < 1 {
		return 1
	}
	return total
}

// Clamp forces p into [0, TotalPages()).
func (m Model) Clamp(p int) int {
	if p < 0 {
		return 0
	}
	if last := m.TotalPages() - 1; p > last {
		return last
	}
	return p
}

// VisibleRange returns the half-open catalog index range shown on page p,
// clamped to [0, Size).
func (m Model) VisibleRange(p int) (start, end int) {
	per := m.perPage()
	n := m.size()
	start = p * per
	end = start + per
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return start, end
}

// SongIndex maps slot on page p to a catalog index. ok is false when the
// slot is outside the page or beyond the end of the catalog.
func (m Model) SongIndex(p, slot int) (index int, ok bool) {
	per := m.perPage()
	if slot < 0 || slot >= per || p < 0 {
		return 0, false
	}
	index = p*per + slot
	if index >= m.size() {
		return 0, false
	}
	return index, true
}

// CanGoBack reports whether a previous page exists.
func (m Model) CanGoBack(p int) bool {
	return p > 0
}

// CanGoForward reports whether a next page exists.
func (m Model) CanGoForward(p int) bool {
	return p < m.TotalPages()-1
}

// Advance returns the next page, or p unchanged on the last page.
func (m Model) Advance(p int) int {
	if m.CanGoForward(p) {
		return p + 1
	}
	return p
}

// Retreat returns the previous page, or p unchanged on the first page.
func (m Model) Retreat(p int) int {
	if m.CanGoBack(p) {
		return p - 1
	}
	return p
}
