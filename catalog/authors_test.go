package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteAuthorWithoutBooks(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	a, err := db.CreateAuthor(ctx, NewAuthor{FirstName: "Octavia", LastName: "Butler"})
	require.NoError(t, err)

	require.NoError(t, db.DeleteAuthor(ctx, a.ID))
	_, err = db.GetAuthor(ctx, a.ID)
	assert.True(t, IsNotFound(err))
}

func TestDeleteAuthorGuardedByBooks(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	author := mustAuthor(t, db)
	book := mustBook(t, db, author.ID, "guard-isbn")

	err := db.DeleteAuthor(ctx, author.ID)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Contains(t, err.Error(), "1 book(s)")

	// Both the author and the book survive the failed delete.
	_, err = db.GetAuthor(ctx, author.ID)
	require.NoError(t, err)
	_, err = db.GetBook(ctx, book.ID)
	require.NoError(t, err)

	// Removing the book unblocks the delete.
	require.NoError(t, db.DeleteBook(ctx, book.ID))
	require.NoError(t, db.DeleteAuthor(ctx, author.ID))
}

func TestDeleteAuthorNotFound(t *testing.T) {
	db := tempDB(t)
	err := db.DeleteAuthor(context.Background(), 123)
	assert.True(t, IsNotFound(err))
}

func TestCreateAuthorValidation(t *testing.T) {
	db := tempDB(t)
	_, err := db.CreateAuthor(context.Background(), NewAuthor{FirstName: "", LastName: "X"})
	assert.True(t, IsBadRequest(err))
	_, err = db.CreateAuthor(context.Background(), NewAuthor{FirstName: "X", LastName: "  "})
	assert.True(t, IsBadRequest(err))
}

func TestUpdateAuthorPartial(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	author := mustAuthor(t, db)

	nationality := "American"
	updated, err := db.UpdateAuthor(ctx, author.ID, AuthorPatch{Nationality: &nationality})
	require.NoError(t, err)
	require.NotNil(t, updated.Nationality)
	assert.Equal(t, "American", *updated.Nationality)
	assert.Equal(t, author.FirstName, updated.FirstName, "unpatched fields keep their values")

	got, err := db.GetAuthor(ctx, author.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Nationality)
	assert.Equal(t, "American", *got.Nationality)
}

func TestListAuthorsPagination(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := db.CreateAuthor(ctx, NewAuthor{FirstName: "A", LastName: "B"})
		require.NoError(t, err)
	}

	page, err := db.ListAuthors(ctx, PageRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Authors, 2)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
}
