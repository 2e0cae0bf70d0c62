package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

// ------------------ Borrowing lifecycle ------------------

// Borrow opens a loan against an available book and flips the book's
// availability off, all in one transaction. The same borrower (by email)
// cannot hold two open loans on the same book, and a book can have at most
// one open loan at a time.
func (d *Database) Borrow(ctx context.Context, req BorrowRequest) (*Borrowing, error) {
	if strings.TrimSpace(req.BorrowerName) == "" {
		return nil, badRequestf("borrower name must not be empty")
	}
	if strings.TrimSpace(req.BorrowerEmail) == "" {
		return nil, badRequestf("borrower email must not be empty")
	}
	days := req.LoanDays
	if days == 0 {
		days = d.defaultLoanDays
	}
	if days < 1 {
		return nil, badRequestf("loan days must be at least 1, got %d", req.LoanDays)
	}

	var created *Borrowing
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		book, err := d.getBookTx(ctx, tx, req.BookID)
		if err != nil {
			return err
		}
		if !book.Available {
			return badRequestf("book %d is not available", req.BookID)
		}

		open, err := d.hasOpenLoanTx(ctx, tx, req.BookID, req.BorrowerEmail)
		if err != nil {
			return err
		}
		if open {
			return badRequestf("borrower %q already has an open loan for book %d", req.BorrowerEmail, req.BookID)
		}

		now := d.now()
		due := now.AddDate(0, 0, days)

		query, args, err := d.gq.Insert(tableBorrowings).Prepared(true).Rows(goqu.Record{
			"book_id":        req.BookID,
			"borrower_name":  req.BorrowerName,
			"borrower_email": req.BorrowerEmail,
			"borrowed_date":  now,
			"due_date":       due,
			"status":         StatusBorrowed,
		}).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert borrowing: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			// The partial unique index rejects a second open loan on the
			// same book that slipped past the availability check.
			if isUniqueViolation(err) {
				return conflictf("book %d was borrowed concurrently", req.BookID)
			}
			return fmt.Errorf("insert borrowing: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("borrowing insert id: %w", err)
		}

		if err := markUnavailableTx(ctx, tx, d.gq, req.BookID); err != nil {
			return err
		}

		created = &Borrowing{
			ID:            id,
			BookID:        req.BookID,
			BorrowerName:  req.BorrowerName,
			BorrowerEmail: req.BorrowerEmail,
			BorrowedDate:  now,
			DueDate:       due,
			Status:        StatusBorrowed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Return closes a loan. Returning an already-returned loan is an error, not
// a no-op. The book's availability flip is best-effort: a book that was
// force-removed in the meantime does not block the return.
func (d *Database) Return(ctx context.Context, borrowingID int64) (*ReturnResult, error) {
	var result *ReturnResult
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		b, err := d.getBorrowingTx(ctx, tx, borrowingID)
		if err != nil {
			return err
		}
		if b.Status == StatusReturned {
			return badRequestf("borrowing %d is already returned", borrowingID)
		}

		now := d.now()
		wasOverdue := b.Status == StatusOverdue || now.After(b.DueDate)
		daysLate := 0
		if now.After(b.DueDate) {
			daysLate = int(now.Sub(b.DueDate) / (24 * time.Hour))
		}

		query, args, err := d.gq.Update(tableBorrowings).Prepared(true).
			Set(goqu.Record{"status": StatusReturned, "returned_date": now}).
			Where(goqu.C("id").Eq(borrowingID)).ToSQL()
		if err != nil {
			return fmt.Errorf("build update borrowing: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update borrowing: %w", err)
		}

		if err := setAvailabilityTx(ctx, tx, d.gq, b.BookID, true); err != nil {
			// Secondary effect only; the return itself stands.
			d.log.Warn("could not release book on return",
				"borrowing_id", borrowingID, "book_id", b.BookID, "error", err)
		}

		b.Status = StatusReturned
		b.ReturnedDate = &now
		result = &ReturnResult{Borrowing: b, WasOverdue: wasOverdue, DaysLate: daysLate}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunOverdueSweep transitions every BORROWED loan past its due date to
// OVERDUE and reports how many rows changed. Running it again with no
// elapsed time changes nothing. This is the only writer of OVERDUE.
func (d *Database) RunOverdueSweep(ctx context.Context) (int64, error) {
	query, args, err := d.gq.Update(tableBorrowings).Prepared(true).
		Set(goqu.Record{"status": StatusOverdue}).
		Where(
			goqu.C("status").Eq(StatusBorrowed),
			goqu.C("due_date").Lt(d.now()),
		).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build overdue sweep: %w", err)
	}
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("overdue sweep: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("overdue sweep rows: %w", err)
	}
	return n, nil
}

// GetBorrowing fetches a single loan.
func (d *Database) GetBorrowing(ctx context.Context, id int64) (*Borrowing, error) {
	query, args, err := d.gq.From(tableBorrowings).Prepared(true).
		Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select borrowing: %w", err)
	}
	var b Borrowing
	if err := d.db.GetContext(ctx, &b, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundf("borrowing %d does not exist", id)
		}
		return nil, fmt.Errorf("select borrowing: %w", err)
	}
	return &b, nil
}

// ListBorrowings returns loans ordered by id. Filter fields combine with
// AND; zero values impose no constraint.
func (d *Database) ListBorrowings(ctx context.Context, filter BorrowingFilter) ([]Borrowing, error) {
	var where []goqu.Expression
	if filter.BookID > 0 {
		where = append(where, goqu.C("book_id").Eq(filter.BookID))
	}
	if filter.BorrowerEmail != "" {
		where = append(where, goqu.C("borrower_email").Eq(filter.BorrowerEmail))
	}
	if filter.Status != "" {
		where = append(where, goqu.C("status").Eq(filter.Status))
	}

	query, args, err := d.gq.From(tableBorrowings).Prepared(true).
		Where(where...).Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list borrowings: %w", err)
	}
	borrowings := []Borrowing{}
	if err := d.db.SelectContext(ctx, &borrowings, query, args...); err != nil {
		return nil, fmt.Errorf("list borrowings: %w", err)
	}
	return borrowings, nil
}

// BorrowingsForBook returns all loans, open and closed, against one book.
func (d *Database) BorrowingsForBook(ctx context.Context, bookID int64) ([]Borrowing, error) {
	return d.ListBorrowings(ctx, BorrowingFilter{BookID: bookID})
}

// BorrowingsForBorrower returns all loans held by one borrower email.
func (d *Database) BorrowingsForBorrower(ctx context.Context, email string) ([]Borrowing, error) {
	return d.ListBorrowings(ctx, BorrowingFilter{BorrowerEmail: email})
}

// InsertBorrowingRecord bulk-inserts a loan with caller-supplied dates and
// status, for seeding and fixtures. Backdated dates are accepted so an
// already-overdue loan can be seeded. An open record flips the book's
// availability like a live borrow would.
func (d *Database) InsertBorrowingRecord(ctx context.Context, rec Borrowing) (*Borrowing, error) {
	switch rec.Status {
	case StatusBorrowed, StatusOverdue:
		if rec.ReturnedDate != nil {
			return nil, badRequestf("open borrowing must not carry a returned date")
		}
	case StatusReturned:
		if rec.ReturnedDate == nil {
			return nil, badRequestf("returned borrowing must carry a returned date")
		}
	default:
		return nil, badRequestf("unknown borrowing status %q", rec.Status)
	}
	if rec.BorrowedDate.IsZero() || rec.DueDate.IsZero() {
		return nil, badRequestf("borrowed and due dates must be set")
	}

	var created *Borrowing
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		book, err := d.getBookTx(ctx, tx, rec.BookID)
		if err != nil {
			return err
		}
		if rec.Status != StatusReturned && !book.Available {
			return badRequestf("book %d is not available", rec.BookID)
		}

		query, args, err := d.gq.Insert(tableBorrowings).Prepared(true).Rows(goqu.Record{
			"book_id":        rec.BookID,
			"borrower_name":  rec.BorrowerName,
			"borrower_email": rec.BorrowerEmail,
			"borrowed_date":  rec.BorrowedDate,
			"due_date":       rec.DueDate,
			"returned_date":  rec.ReturnedDate,
			"status":         rec.Status,
		}).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert borrowing record: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return conflictf("book %d already has an open borrowing", rec.BookID)
			}
			return fmt.Errorf("insert borrowing record: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("borrowing record insert id: %w", err)
		}

		if rec.Status != StatusReturned {
			if err := markUnavailableTx(ctx, tx, d.gq, rec.BookID); err != nil {
				return err
			}
		}

		out := rec
		out.ID = id
		created = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ------------------ internal helpers ------------------

func (d *Database) getBorrowingTx(ctx context.Context, tx *sqlx.Tx, id int64) (*Borrowing, error) {
	query, args, err := d.gq.From(tableBorrowings).Prepared(true).
		Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select borrowing: %w", err)
	}
	var b Borrowing
	if err := tx.GetContext(ctx, &b, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundf("borrowing %d does not exist", id)
		}
		return nil, fmt.Errorf("select borrowing: %w", err)
	}
	return &b, nil
}

func (d *Database) hasOpenLoanTx(ctx context.Context, tx *sqlx.Tx, bookID int64, email string) (bool, error) {
	query, args, err := d.gq.From(tableBorrowings).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(
			goqu.C("book_id").Eq(bookID),
			goqu.C("borrower_email").Eq(email),
			goqu.C("returned_date").IsNull(),
		).ToSQL()
	if err != nil {
		return false, fmt.Errorf("build open loan check: %w", err)
	}
	var n int64
	if err := tx.GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("open loan check: %w", err)
	}
	return n > 0, nil
}
