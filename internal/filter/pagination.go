package filter

import "gorm.io/gorm"

const (
	// DefaultLength is used when a request asks for length 0.
	DefaultLength = 10
	// MaxLength caps the page size.
	MaxLength = 50
)

// Pagination is the {start, length} payload of listing endpoints. Start is
// the zero-based page index; zero values mean "use the default".
type Pagination struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// Bounds is a resolved, 1-indexed page.
type Bounds struct {
	Page   int
	Length int
}

// Resolve applies defaults and the size cap.
func (p Pagination) Resolve() Bounds {
	page := 1
	if p.Start > 0 {
		page = p.Start + 1
	}
	length := p.Length
	if length <= 0 {
		length = DefaultLength
	}
	if length > MaxLength {
		length = MaxLength
	}
	return Bounds{Page: page, Length: length}
}

// Offset is the number of records skipped before this page.
func (b Bounds) Offset() int {
	if b.Page <= 1 {
		return 0
	}
	return (b.Page - 1) * b.Length
}

// Scope limits a query to the page.
func (b Bounds) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		length := b.Length
		if length <= 0 {
			length = DefaultLength
		}
		return db.Offset(b.Offset()).Limit(length)
	}
}
