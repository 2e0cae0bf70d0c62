package catalog

import "context"

// Catalog is the facade over the database and the overdue sweeper, keeping
// caller code (CLI, seeders) simple.
type Catalog struct {
	cfg     Config
	log     Logger
	db      *Database
	sweeper *Sweeper
}

// Open opens (or creates) the catalog database described by cfg. A nil
// logger falls back to the default slog logger. The sweeper is built but not
// started; call StartSweeper for long-running processes.
func Open(cfg Config, log Logger, opts ...DBOption) (*Catalog, error) {
	if log == nil {
		log = DefaultLogger()
	}
	dbOpts := append([]DBOption{
		WithLogger(log),
		WithDefaultLoanDays(cfg.DefaultLoanDays),
	}, opts...)
	db, err := OpenDatabase(cfg.DBPath, dbOpts...)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		cfg:     cfg,
		log:     log,
		db:      db,
		sweeper: NewSweeper(db, log, cfg.SweepInterval),
	}, nil
}

// StartSweeper begins the recurring overdue sweep.
func (c *Catalog) StartSweeper() error { return c.sweeper.Start() }

// Close stops the sweeper and closes the database.
func (c *Catalog) Close() error {
	c.sweeper.Stop()
	return c.db.Close()
}

// ------------------ Book helpers ------------------

func (c *Catalog) CreateBook(ctx context.Context, in NewBook) (*Book, error) {
	return c.db.CreateBook(ctx, in)
}

func (c *Catalog) GetBook(ctx context.Context, id int64) (*Book, error) {
	return c.db.GetBook(ctx, id)
}

func (c *Catalog) ListBooks(ctx context.Context, filter BookFilter, page PageRequest) (*BookPage, error) {
	return c.db.ListBooks(ctx, filter, page)
}

func (c *Catalog) UpdateBook(ctx context.Context, id int64, patch BookPatch) (*Book, error) {
	return c.db.UpdateBook(ctx, id, patch)
}

func (c *Catalog) DeleteBook(ctx context.Context, id int64) error {
	return c.db.DeleteBook(ctx, id)
}

// SetBookAvailability is the explicit admin override for the available flag.
func (c *Catalog) SetBookAvailability(ctx context.Context, id int64, available bool) (*Book, error) {
	return c.db.SetBookAvailability(ctx, id, available)
}

// ------------------ Author helpers ------------------

func (c *Catalog) CreateAuthor(ctx context.Context, in NewAuthor) (*Author, error) {
	return c.db.CreateAuthor(ctx, in)
}

func (c *Catalog) GetAuthor(ctx context.Context, id int64) (*Author, error) {
	return c.db.GetAuthor(ctx, id)
}

func (c *Catalog) ListAuthors(ctx context.Context, page PageRequest) (*AuthorPage, error) {
	return c.db.ListAuthors(ctx, page)
}

func (c *Catalog) UpdateAuthor(ctx context.Context, id int64, patch AuthorPatch) (*Author, error) {
	return c.db.UpdateAuthor(ctx, id, patch)
}

func (c *Catalog) DeleteAuthor(ctx context.Context, id int64) error {
	return c.db.DeleteAuthor(ctx, id)
}

// ------------------ Circulation ------------------

func (c *Catalog) Borrow(ctx context.Context, req BorrowRequest) (*Borrowing, error) {
	return c.db.Borrow(ctx, req)
}

func (c *Catalog) Return(ctx context.Context, borrowingID int64) (*ReturnResult, error) {
	return c.db.Return(ctx, borrowingID)
}

func (c *Catalog) GetBorrowing(ctx context.Context, id int64) (*Borrowing, error) {
	return c.db.GetBorrowing(ctx, id)
}

func (c *Catalog) ListBorrowings(ctx context.Context, filter BorrowingFilter) ([]Borrowing, error) {
	return c.db.ListBorrowings(ctx, filter)
}

func (c *Catalog) BorrowingsForBook(ctx context.Context, bookID int64) ([]Borrowing, error) {
	return c.db.BorrowingsForBook(ctx, bookID)
}

func (c *Catalog) BorrowingsForBorrower(ctx context.Context, email string) ([]Borrowing, error) {
	return c.db.BorrowingsForBorrower(ctx, email)
}

// RunOverdueSweep runs one sweep pass immediately, outside the schedule.
func (c *Catalog) RunOverdueSweep(ctx context.Context) (int64, error) {
	return c.db.RunOverdueSweep(ctx)
}

// InsertBorrowingRecord bulk-inserts a loan with explicit dates, for seeding.
func (c *Catalog) InsertBorrowingRecord(ctx context.Context, rec Borrowing) (*Borrowing, error) {
	return c.db.InsertBorrowingRecord(ctx, rec)
}
