package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

// ------------------ Book store ------------------

// CreateBook validates and inserts a book. Available defaults to true unless
// the input says otherwise. The ISBN must not be in use by any other book.
func (d *Database) CreateBook(ctx context.Context, in NewBook) (*Book, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, badRequestf("book title must not be empty")
	}
	if strings.TrimSpace(in.ISBN) == "" {
		return nil, badRequestf("book isbn must not be empty")
	}

	available := true
	if in.Available != nil {
		available = *in.Available
	}

	var created *Book
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := d.authorExistsTx(ctx, tx, in.AuthorID); err != nil {
			return err
		}
		if err := d.checkISBNFreeTx(ctx, tx, in.ISBN, 0); err != nil {
			return err
		}

		query, args, err := d.gq.Insert(tableBooks).Prepared(true).Rows(goqu.Record{
			"title":          in.Title,
			"isbn":           in.ISBN,
			"author_id":      in.AuthorID,
			"published_year": in.PublishedYear,
			"genre":          in.Genre,
			"available":      available,
		}).ToSQL()
		if err != nil {
			return fmt.Errorf("build insert book: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return badRequestf("isbn %q is already in use", in.ISBN)
			}
			return fmt.Errorf("insert book: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("book insert id: %w", err)
		}

		created = &Book{
			ID:            id,
			Title:         in.Title,
			ISBN:          in.ISBN,
			AuthorID:      in.AuthorID,
			PublishedYear: in.PublishedYear,
			Genre:         in.Genre,
			Available:     available,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetBook fetches a single book.
func (d *Database) GetBook(ctx context.Context, id int64) (*Book, error) {
	query, args, err := d.gq.From(tableBooks).Prepared(true).
		Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select book: %w", err)
	}

	var b Book
	if err := d.db.GetContext(ctx, &b, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundf("book %d does not exist", id)
		}
		return nil, fmt.Errorf("select book: %w", err)
	}
	return &b, nil
}

// ListBooks returns one page of books ordered by id. Filter fields combine
// with AND; zero values impose no constraint.
func (d *Database) ListBooks(ctx context.Context, filter BookFilter, page PageRequest) (*BookPage, error) {
	page = page.normalize()

	var where []goqu.Expression
	if filter.AuthorID > 0 {
		where = append(where, goqu.C("author_id").Eq(filter.AuthorID))
	}
	if filter.Genre != "" {
		where = append(where, goqu.C("genre").Eq(filter.Genre))
	}
	if filter.AvailableOnly {
		where = append(where, goqu.C("available").IsTrue())
	}

	base := d.gq.From(tableBooks).Prepared(true).Where(where...)

	countQuery, countArgs, err := base.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build count books: %w", err)
	}
	var total int64
	if err := d.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	query, args, err := base.Order(goqu.C("id").Asc()).
		Limit(uint(page.Limit)).Offset(uint(page.offset())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list books: %w", err)
	}
	books := []Book{}
	if err := d.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	return &BookPage{Books: books, PageInfo: pageInfo(page, total)}, nil
}

// UpdateBook merges the non-nil patch fields into the book. ISBN uniqueness
// is re-checked only when the patch actually changes it. Availability cannot
// be patched here; see SetBookAvailability.
func (d *Database) UpdateBook(ctx context.Context, id int64, patch BookPatch) (*Book, error) {
	var updated *Book
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		book, err := d.getBookTx(ctx, tx, id)
		if err != nil {
			return err
		}

		rec := goqu.Record{}
		if patch.Title != nil {
			if strings.TrimSpace(*patch.Title) == "" {
				return badRequestf("book title must not be empty")
			}
			rec["title"] = *patch.Title
			book.Title = *patch.Title
		}
		if patch.ISBN != nil && *patch.ISBN != book.ISBN {
			if strings.TrimSpace(*patch.ISBN) == "" {
				return badRequestf("book isbn must not be empty")
			}
			if err := d.checkISBNFreeTx(ctx, tx, *patch.ISBN, id); err != nil {
				return err
			}
			rec["isbn"] = *patch.ISBN
			book.ISBN = *patch.ISBN
		}
		if patch.AuthorID != nil && *patch.AuthorID != book.AuthorID {
			if err := d.authorExistsTx(ctx, tx, *patch.AuthorID); err != nil {
				return err
			}
			rec["author_id"] = *patch.AuthorID
			book.AuthorID = *patch.AuthorID
		}
		if patch.PublishedYear != nil {
			rec["published_year"] = *patch.PublishedYear
			book.PublishedYear = *patch.PublishedYear
		}
		if patch.Genre != nil {
			rec["genre"] = *patch.Genre
			book.Genre = patch.Genre
		}

		if len(rec) == 0 {
			updated = book
			return nil
		}

		query, args, err := d.gq.Update(tableBooks).Prepared(true).
			Set(rec).Where(goqu.C("id").Eq(id)).ToSQL()
		if err != nil {
			return fmt.Errorf("build update book: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return badRequestf("isbn %q is already in use", book.ISBN)
			}
			return fmt.Errorf("update book: %w", err)
		}
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBook removes a book. A book with an open borrowing cannot be
// deleted; return the loan first. Returned loans stay as history.
func (d *Database) DeleteBook(ctx context.Context, id int64) error {
	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := d.getBookTx(ctx, tx, id); err != nil {
			return err
		}

		query, args, err := d.gq.From(tableBorrowings).Prepared(true).
			Select(goqu.COUNT(goqu.Star())).
			Where(goqu.C("book_id").Eq(id), goqu.C("returned_date").IsNull()).ToSQL()
		if err != nil {
			return fmt.Errorf("build count open borrowings: %w", err)
		}
		var open int64
		if err := tx.GetContext(ctx, &open, query, args...); err != nil {
			return fmt.Errorf("count open borrowings: %w", err)
		}
		if open > 0 {
			return conflictf("book %d has an open borrowing; return it before deleting", id)
		}

		query, args, err = d.gq.Delete(tableBooks).Prepared(true).
			Where(goqu.C("id").Eq(id)).ToSQL()
		if err != nil {
			return fmt.Errorf("build delete book: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
}

// SetBookAvailability is the explicit admin override for the available flag.
// The borrowing lifecycle flips the flag itself; catalog edits cannot.
func (d *Database) SetBookAvailability(ctx context.Context, id int64, available bool) (*Book, error) {
	var updated *Book
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		book, err := d.getBookTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := setAvailabilityTx(ctx, tx, d.gq, id, available); err != nil {
			return err
		}
		book.Available = available
		updated = book
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ------------------ internal helpers ------------------

func (d *Database) getBookTx(ctx context.Context, tx *sqlx.Tx, id int64) (*Book, error) {
	query, args, err := d.gq.From(tableBooks).Prepared(true).
		Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select book: %w", err)
	}
	var b Book
	if err := tx.GetContext(ctx, &b, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundf("book %d does not exist", id)
		}
		return nil, fmt.Errorf("select book: %w", err)
	}
	return &b, nil
}

// checkISBNFreeTx fails with a validation error when another book (id !=
// excludeID) already uses the ISBN.
func (d *Database) checkISBNFreeTx(ctx context.Context, tx *sqlx.Tx, isbn string, excludeID int64) error {
	query, args, err := d.gq.From(tableBooks).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("isbn").Eq(isbn), goqu.C("id").Neq(excludeID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build isbn check: %w", err)
	}
	var n int64
	if err := tx.GetContext(ctx, &n, query, args...); err != nil {
		return fmt.Errorf("isbn check: %w", err)
	}
	if n > 0 {
		return badRequestf("isbn %q is already in use", isbn)
	}
	return nil
}

// setAvailabilityTx flips the available flag unconditionally. Returns
// NotFound when the book row is gone.
func setAvailabilityTx(ctx context.Context, tx *sqlx.Tx, gq goqu.DialectWrapper, id int64, available bool) error {
	query, args, err := gq.Update(tableBooks).Prepared(true).
		Set(goqu.Record{"available": available}).
		Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build set availability: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set availability: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set availability rows: %w", err)
	}
	if n == 0 {
		return notFoundf("book %d does not exist", id)
	}
	return nil
}

// markUnavailableTx flips available to false only when it is currently true,
// so the caller can detect a lost race on the flag.
func markUnavailableTx(ctx context.Context, tx *sqlx.Tx, gq goqu.DialectWrapper, id int64) error {
	query, args, err := gq.Update(tableBooks).Prepared(true).
		Set(goqu.Record{"available": false}).
		Where(goqu.C("id").Eq(id), goqu.C("available").IsTrue()).ToSQL()
	if err != nil {
		return fmt.Errorf("build mark unavailable: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark unavailable: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark unavailable rows: %w", err)
	}
	if n == 0 {
		return conflictf("book %d was borrowed concurrently", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
