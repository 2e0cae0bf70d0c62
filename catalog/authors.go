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

// ------------------ Author store ------------------

// CreateAuthor inserts an author. There is no uniqueness constraint on
// author identity fields.
func (d *Database) CreateAuthor(ctx context.Context, in NewAuthor) (*Author, error) {
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, badRequestf("author first and last name must not be empty")
	}

	query, args, err := d.gq.Insert(tableAuthors).Prepared(true).Rows(goqu.Record{
		"first_name":    in.FirstName,
		"last_name":     in.LastName,
		"date_of_birth": in.DateOfBirth,
		"nationality":   in.Nationality,
		"biography":     in.Biography,
	}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build insert author: %w", err)
	}

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert author: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("author insert id: %w", err)
	}

	return &Author{
		ID:          id,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DateOfBirth: in.DateOfBirth,
		Nationality: in.Nationality,
		Biography:   in.Biography,
	}, nil
}

// GetAuthor fetches a single author.
func (d *Database) GetAuthor(ctx context.Context, id int64) (*Author, error) {
	query, args, err := d.gq.From(tableAuthors).Prepared(true).
		Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select author: %w", err)
	}
	var a Author
	if err := d.db.GetContext(ctx, &a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundf("author %d does not exist", id)
		}
		return nil, fmt.Errorf("select author: %w", err)
	}
	return &a, nil
}

// ListAuthors returns one page of authors ordered by id.
func (d *Database) ListAuthors(ctx context.Context, page PageRequest) (*AuthorPage, error) {
	page = page.normalize()

	countQuery, countArgs, err := d.gq.From(tableAuthors).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build count authors: %w", err)
	}
	var total int64
	if err := d.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, fmt.Errorf("count authors: %w", err)
	}

	query, args, err := d.gq.From(tableAuthors).Prepared(true).
		Order(goqu.C("id").Asc()).
		Limit(uint(page.Limit)).Offset(uint(page.offset())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list authors: %w", err)
	}
	authors := []Author{}
	if err := d.db.SelectContext(ctx, &authors, query, args...); err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}

	return &AuthorPage{Authors: authors, PageInfo: pageInfo(page, total)}, nil
}

// UpdateAuthor merges the non-nil patch fields into the author.
func (d *Database) UpdateAuthor(ctx context.Context, id int64, patch AuthorPatch) (*Author, error) {
	var updated *Author
	err := d.withTx(ctx, func(tx *sqlx.Tx) error {
		author, err := d.getAuthorTx(ctx, tx, id)
		if err != nil {
			return err
		}

		rec := goqu.Record{}
		if patch.FirstName != nil {
			if strings.TrimSpace(*patch.FirstName) == "" {
				return badRequestf("author first name must not be empty")
			}
			rec["first_name"] = *patch.FirstName
			author.FirstName = *patch.FirstName
		}
		if patch.LastName != nil {
			if strings.TrimSpace(*patch.LastName) == "" {
				return badRequestf("author last name must not be empty")
			}
			rec["last_name"] = *patch.LastName
			author.LastName = *patch.LastName
		}
		if patch.DateOfBirth != nil {
			rec["date_of_birth"] = *patch.DateOfBirth
			author.DateOfBirth = patch.DateOfBirth
		}
		if patch.Nationality != nil {
			rec["nationality"] = *patch.Nationality
			author.Nationality = patch.Nationality
		}
		if patch.Biography != nil {
			rec["biography"] = *patch.Biography
			author.Biography = patch.Biography
		}

		if len(rec) == 0 {
			updated = author
			return nil
		}

		query, args, err := d.gq.Update(tableAuthors).Prepared(true).
			Set(rec).Where(goqu.C("id").Eq(id)).ToSQL()
		if err != nil {
			return fmt.Errorf("build update author: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update author: %w", err)
		}
		updated = author
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteAuthor removes an author. An author that still has books cannot be
// deleted; the error names how many books block it.
func (d *Database) DeleteAuthor(ctx context.Context, id int64) error {
	return d.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := d.getAuthorTx(ctx, tx, id); err != nil {
			return err
		}

		query, args, err := d.gq.From(tableBooks).Prepared(true).
			Select(goqu.COUNT(goqu.Star())).
			Where(goqu.C("author_id").Eq(id)).ToSQL()
		if err != nil {
			return fmt.Errorf("build count author books: %w", err)
		}
		var n int64
		if err := tx.GetContext(ctx, &n, query, args...); err != nil {
			return fmt.Errorf("count author books: %w", err)
		}
		if n > 0 {
			return conflictf("author %d has %d book(s); reassign or delete them first", id, n)
		}

		query, args, err = d.gq.Delete(tableAuthors).Prepared(true).
			Where(goqu.C("id").Eq(id)).ToSQL()
		if err != nil {
			return fmt.Errorf("build delete author: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete author: %w", err)
		}
		return nil
	})
}

// ------------------ internal helpers ------------------

func (d *Database) getAuthorTx(ctx context.Context, tx *sqlx.Tx, id int64) (*Author, error) {
	query, args, err := d.gq.From(tableAuthors).Prepared(true).
		Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select author: %w", err)
	}
	var a Author
	if err := tx.GetContext(ctx, &a, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundf("author %d does not exist", id)
		}
		return nil, fmt.Errorf("select author: %w", err)
	}
	return &a, nil
}

func (d *Database) authorExistsTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	query, args, err := d.gq.From(tableAuthors).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return fmt.Errorf("build author exists: %w", err)
	}
	var n int64
	if err := tx.GetContext(ctx, &n, query, args...); err != nil {
		return fmt.Errorf("author exists: %w", err)
	}
	if n == 0 {
		return notFoundf("author %d does not exist", id)
	}
	return nil
}
