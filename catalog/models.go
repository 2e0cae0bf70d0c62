package catalog

import "time"

// BorrowingStatus tracks where a loan is in its lifecycle. OVERDUE is only
// ever set by the overdue sweep; clients cannot request it.
type BorrowingStatus string

const (
	StatusBorrowed BorrowingStatus = "BORROWED"
	StatusOverdue  BorrowingStatus = "OVERDUE"
	StatusReturned BorrowingStatus = "RETURNED"
)

// DefaultLoanDays is the loan period applied when a borrow request does not
// specify one.
const DefaultLoanDays = 14

// Book is a catalog entry. Available is maintained by the borrowing
// lifecycle (and the explicit admin override), not by catalog edits.
type Book struct {
	ID            int64   `db:"id" json:"id"`
	Title         string  `db:"title" json:"title"`
	ISBN          string  `db:"isbn" json:"isbn"`
	AuthorID      int64   `db:"author_id" json:"author_id"`
	PublishedYear int     `db:"published_year" json:"published_year"`
	Genre         *string `db:"genre" json:"genre,omitempty"`
	Available     bool    `db:"available" json:"available"`
}

// Author of one or more books. Only the name fields are required.
type Author struct {
	ID          int64      `db:"id" json:"id"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Nationality *string    `db:"nationality" json:"nationality,omitempty"`
	Biography   *string    `db:"biography" json:"biography,omitempty"`
}

// Borrowing is one loan of one book. Borrowers are keyed by email for
// duplicate-loan detection; the name is display data.
type Borrowing struct {
	ID            int64           `db:"id" json:"id"`
	BookID        int64           `db:"book_id" json:"book_id"`
	BorrowerName  string          `db:"borrower_name" json:"borrower_name"`
	BorrowerEmail string          `db:"borrower_email" json:"borrower_email"`
	BorrowedDate  time.Time       `db:"borrowed_date" json:"borrowed_date"`
	DueDate       time.Time       `db:"due_date" json:"due_date"`
	ReturnedDate  *time.Time      `db:"returned_date" json:"returned_date,omitempty"`
	Status        BorrowingStatus `db:"status" json:"status"`
}

// Open reports whether the loan is still out (borrowed or overdue).
func (b *Borrowing) Open() bool { return b.Status != StatusReturned }

// NewBook is the input for creating a book. Available defaults to true when
// nil.
type NewBook struct {
	Title         string
	ISBN          string
	AuthorID      int64
	PublishedYear int
	Genre         *string
	Available     *bool
}

// BookPatch is a partial update; nil fields are left untouched. Availability
// is deliberately absent, see Catalog.SetBookAvailability.
type BookPatch struct {
	Title         *string
	ISBN          *string
	AuthorID      *int64
	PublishedYear *int
	Genre         *string
}

// NewAuthor is the input for creating an author.
type NewAuthor struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Nationality *string
	Biography   *string
}

// AuthorPatch is a partial update; nil fields are left untouched.
type AuthorPatch struct {
	FirstName   *string
	LastName    *string
	DateOfBirth *time.Time
	Nationality *string
	Biography   *string
}

// BorrowRequest asks to open a loan. LoanDays zero means "use the default";
// anything else must be at least 1.
type BorrowRequest struct {
	BookID        int64
	BorrowerName  string
	BorrowerEmail string
	LoanDays      int
}

// ReturnResult reports the outcome of returning a loan. DaysLate is whole
// days past the due date at return time, zero when returned on time.
type ReturnResult struct {
	Borrowing  *Borrowing
	WasOverdue bool
	DaysLate   int
}

// BookFilter narrows ListBooks. Zero values mean "no constraint"; set fields
// combine with AND.
type BookFilter struct {
	AuthorID      int64
	Genre         string
	AvailableOnly bool
}

// BorrowingFilter narrows ListBorrowings.
type BorrowingFilter struct {
	BookID        int64
	BorrowerEmail string
	Status        BorrowingStatus
}

// PageRequest selects a page of results. Page starts at 1. Limit defaults to
// 20 and is capped at 100.
type PageRequest struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

func (p PageRequest) offset() int { return (p.Page - 1) * p.Limit }

// PageInfo describes the page that was returned.
type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func pageInfo(req PageRequest, total int64) PageInfo {
	pages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	return PageInfo{Page: req.Page, Limit: req.Limit, Total: total, TotalPages: pages}
}

// BookPage is one page of books plus paging metadata.
type BookPage struct {
	Books []Book `json:"books"`
	PageInfo
}

// AuthorPage is one page of authors plus paging metadata.
type AuthorPage struct {
	Authors []Author `json:"authors"`
	PageInfo
}
