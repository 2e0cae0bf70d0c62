package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookDefaultsAvailable(t *testing.T) {
	db := tempDB(t)
	author := mustAuthor(t, db)

	b, err := db.CreateBook(context.Background(), NewBook{
		Title:    "The Dispossessed",
		ISBN:     "978-0061054884",
		AuthorID: author.ID,
	})
	require.NoError(t, err)
	assert.True(t, b.Available)

	unavailable := false
	b2, err := db.CreateBook(context.Background(), NewBook{
		Title:     "The Lathe of Heaven",
		ISBN:      "978-1416556961",
		AuthorID:  author.ID,
		Available: &unavailable,
	})
	require.NoError(t, err)
	assert.False(t, b2.Available)
}

func TestCreateBookDuplicateISBN(t *testing.T) {
	db := tempDB(t)
	author := mustAuthor(t, db)

	first, err := db.CreateBook(context.Background(), NewBook{
		Title: "Original", ISBN: "222", AuthorID: author.ID,
	})
	require.NoError(t, err)

	_, err = db.CreateBook(context.Background(), NewBook{
		Title: "Copycat", ISBN: "222", AuthorID: author.ID,
	})
	require.Error(t, err)
	assert.True(t, IsBadRequest(err), "duplicate isbn should be a validation error, got %v", err)
	assert.Contains(t, err.Error(), "222")

	// The first book must be untouched.
	got, err := db.GetBook(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Title)
	assert.Equal(t, "222", got.ISBN)
}

func TestCreateBookValidation(t *testing.T) {
	db := tempDB(t)
	author := mustAuthor(t, db)

	_, err := db.CreateBook(context.Background(), NewBook{Title: " ", ISBN: "1", AuthorID: author.ID})
	assert.True(t, IsBadRequest(err))

	_, err = db.CreateBook(context.Background(), NewBook{Title: "T", ISBN: "", AuthorID: author.ID})
	assert.True(t, IsBadRequest(err))

	_, err = db.CreateBook(context.Background(), NewBook{Title: "T", ISBN: "1", AuthorID: 999})
	assert.True(t, IsNotFound(err), "missing author should be not-found, got %v", err)
}

func TestGetBookNotFound(t *testing.T) {
	db := tempDB(t)
	_, err := db.GetBook(context.Background(), 42)
	assert.True(t, IsNotFound(err))
}

func TestUpdateBookISBNRecheckOnlyWhenChanged(t *testing.T) {
	db := tempDB(t)
	author := mustAuthor(t, db)
	a := mustBook(t, db, author.ID, "aaa")
	mustBook(t, db, author.ID, "bbb")

	// Patching to the ISBN the book already has is a no-op, not a duplicate.
	same := "aaa"
	_, err := db.UpdateBook(context.Background(), a.ID, BookPatch{ISBN: &same})
	require.NoError(t, err)

	// Patching to another book's ISBN fails.
	taken := "bbb"
	_, err = db.UpdateBook(context.Background(), a.ID, BookPatch{ISBN: &taken})
	require.Error(t, err)
	assert.True(t, IsBadRequest(err))

	// Other fields merge without touching the ISBN.
	title := "Renamed"
	year := 1974
	updated, err := db.UpdateBook(context.Background(), a.ID, BookPatch{Title: &title, PublishedYear: &year})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, 1974, updated.PublishedYear)
	assert.Equal(t, "aaa", updated.ISBN)

	got, err := db.GetBook(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
}

func TestUpdateBookNotFound(t *testing.T) {
	db := tempDB(t)
	title := "x"
	_, err := db.UpdateBook(context.Background(), 7, BookPatch{Title: &title})
	assert.True(t, IsNotFound(err))
}

func TestListBooksFiltersCombine(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	orwell := mustAuthor(t, db)
	tolkien, err := db.CreateAuthor(ctx, NewAuthor{FirstName: "J.R.R.", LastName: "Tolkien"})
	require.NoError(t, err)

	fantasy := "Fantasy"
	dystopia := "Dystopian"
	mk := func(isbn string, authorID int64, genre *string) *Book {
		b, err := db.CreateBook(ctx, NewBook{Title: "B" + isbn, ISBN: isbn, AuthorID: authorID, Genre: genre})
		require.NoError(t, err)
		return b
	}
	b1 := mk("1", orwell.ID, &dystopia)
	mk("2", orwell.ID, &fantasy)
	b3 := mk("3", tolkien.ID, &fantasy)
	mk("4", tolkien.ID, &fantasy)

	// Borrow one fantasy Tolkien so availableOnly excludes it.
	_, err = db.Borrow(ctx, BorrowRequest{BookID: b3.ID, BorrowerName: "A", BorrowerEmail: "a@x.io"})
	require.NoError(t, err)

	page, err := db.ListBooks(ctx, BookFilter{AuthorID: tolkien.ID, Genre: "Fantasy", AvailableOnly: true}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Books, 1)
	assert.Equal(t, "4", page.Books[0].ISBN)
	assert.EqualValues(t, 1, page.Total)

	page, err = db.ListBooks(ctx, BookFilter{Genre: "Fantasy"}, PageRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Books, 3)

	page, err = db.ListBooks(ctx, BookFilter{AuthorID: orwell.ID}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Books, 2)
	assert.Equal(t, b1.ID, page.Books[0].ID, "ordered by id ascending")
}

func TestListBooksPagination(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	author := mustAuthor(t, db)
	for i := 0; i < 5; i++ {
		mustBook(t, db, author.ID, string(rune('a'+i)))
	}

	page, err := db.ListBooks(ctx, BookFilter{}, PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Books, 2)
	assert.EqualValues(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)

	// Pages past the end are empty but keep the totals.
	page, err = db.ListBooks(ctx, BookFilter{}, PageRequest{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Books)
	assert.EqualValues(t, 5, page.Total)
}

func TestDeleteBookGuardsOpenLoan(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	author := mustAuthor(t, db)
	book := mustBook(t, db, author.ID, "guarded")

	loan, err := db.Borrow(ctx, BorrowRequest{BookID: book.ID, BorrowerName: "A", BorrowerEmail: "a@x.io"})
	require.NoError(t, err)

	err = db.DeleteBook(ctx, book.ID)
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	_, err = db.Return(ctx, loan.ID)
	require.NoError(t, err)

	// Closed history does not block deletion.
	require.NoError(t, db.DeleteBook(ctx, book.ID))
	_, err = db.GetBook(ctx, book.ID)
	assert.True(t, IsNotFound(err))
}

func TestDeleteBookNotFound(t *testing.T) {
	db := tempDB(t)
	err := db.DeleteBook(context.Background(), 9)
	assert.True(t, IsNotFound(err))
}

func TestSetBookAvailabilityOverride(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	author := mustAuthor(t, db)
	book := mustBook(t, db, author.ID, "override")

	b, err := db.SetBookAvailability(ctx, book.ID, false)
	require.NoError(t, err)
	assert.False(t, b.Available)

	got, err := db.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, got.Available)

	_, err = db.SetBookAvailability(ctx, 404, true)
	assert.True(t, IsNotFound(err))
}
