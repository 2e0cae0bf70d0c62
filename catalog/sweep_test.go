package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	db := tempDB(t, WithClock(clock))
	ctx := context.Background()
	author := mustAuthor(t, db)
	b1 := mustBook(t, db, author.ID, "s1")
	b2 := mustBook(t, db, author.ID, "s2")

	_, err := db.Borrow(ctx, BorrowRequest{BookID: b1.ID, BorrowerName: "A", BorrowerEmail: "a@x.io", LoanDays: 1})
	require.NoError(t, err)
	_, err = db.Borrow(ctx, BorrowRequest{BookID: b2.ID, BorrowerName: "B", BorrowerEmail: "b@x.io", LoanDays: 5})
	require.NoError(t, err)

	clock.AdvanceDays(2)

	n, err := db.RunOverdueSweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "only the past-due loan transitions")

	// A second pass with no elapsed time re-processes nothing.
	n, err = db.RunOverdueSweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	overdue, err := db.ListBorrowings(ctx, BorrowingFilter{Status: StatusOverdue})
	require.NoError(t, err)
	assert.Len(t, overdue, 1)
}

func TestSweepIgnoresReturnedLoans(t *testing.T) {
	clock := newFakeClock()
	db := tempDB(t, WithClock(clock))
	ctx := context.Background()
	author := mustAuthor(t, db)
	book := mustBook(t, db, author.ID, "s3")

	loan, err := db.Borrow(ctx, BorrowRequest{BookID: book.ID, BorrowerName: "A", BorrowerEmail: "a@x.io", LoanDays: 1})
	require.NoError(t, err)
	_, err = db.Return(ctx, loan.ID)
	require.NoError(t, err)

	clock.AdvanceDays(5)
	n, err := db.RunOverdueSweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "returned loans never go overdue")

	stored, err := db.GetBorrowing(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, stored.Status)
}

func TestSweeperStartStop(t *testing.T) {
	db := tempDB(t)
	s := NewSweeper(db, NopLogger(), time.Hour)

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "double start is rejected")
	s.Stop()

	// Stopped sweeper can be started again.
	require.NoError(t, s.Start())
	s.Stop()
}

func TestSweeperRejectsBadInterval(t *testing.T) {
	db := tempDB(t)
	s := NewSweeper(db, NopLogger(), 0)
	assert.Error(t, s.Start())
}
