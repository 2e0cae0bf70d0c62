package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"library-catalog/catalog"
)

type seedAuthor struct {
	first, last, nationality string
}

type seedBook struct {
	title, isbn, genre string
	year               int
	authorIdx          int
}

func main() {
	cfg, err := catalog.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Clean up any existing database files
	fmt.Println("Cleaning up existing database files...")
	dbFiles := []string{cfg.DBPath, cfg.DBPath + "-shm", cfg.DBPath + "-wal"}
	for _, file := range dbFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}
	fmt.Println("Database cleanup complete.")

	c, err := catalog.Open(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	ctx := context.Background()

	authors := []seedAuthor{
		{"George", "Orwell", "British"},
		{"J.R.R.", "Tolkien", "British"},
		{"Alexandre", "Dumas", "French"},
		{"Sun", "Tzu", "Chinese"},
		{"William", "Shakespeare", "British"},
	}
	authorIDs := make([]int64, len(authors))
	for i, a := range authors {
		nat := a.nationality
		created, err := c.CreateAuthor(ctx, catalog.NewAuthor{
			FirstName:   a.first,
			LastName:    a.last,
			Nationality: &nat,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error seeding author %s %s: %v\n", a.first, a.last, err)
			os.Exit(1)
		}
		authorIDs[i] = created.ID
	}
	fmt.Printf("Seeded %d authors.\n", len(authorIDs))

	books := []seedBook{
		{"1984", "978-0451524935", "Dystopian", 1949, 0},
		{"Animal Farm", "978-0452284241", "Satire", 1945, 0},
		{"The Fellowship of the Ring", "978-0547928210", "Fantasy", 1954, 1},
		{"The Two Towers", "978-0547928203", "Fantasy", 1954, 1},
		{"The Return of the King", "978-0547928197", "Fantasy", 1955, 1},
		{"The Three Musketeers", "978-0140437263", "Adventure", 1844, 2},
		{"The Art of War", "978-1590302255", "Strategy", -500, 3},
		{"Romeo and Juliet", "978-0743477116", "Tragedy", 1597, 4},
	}
	bookIDs := make([]int64, len(books))
	for i, b := range books {
		genre := b.genre
		created, err := c.CreateBook(ctx, catalog.NewBook{
			Title:         b.title,
			ISBN:          b.isbn,
			AuthorID:      authorIDs[b.authorIdx],
			PublishedYear: b.year,
			Genre:         &genre,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error seeding book %q: %v\n", b.title, err)
			os.Exit(1)
		}
		bookIDs[i] = created.ID
	}
	fmt.Printf("Seeded %d books.\n", len(bookIDs))

	// One live loan, one backdated loan that the first sweep will flag as
	// overdue, and one closed loan for history.
	now := time.Now().UTC()
	seedLoans := []catalog.Borrowing{
		{
			BookID:        bookIDs[0],
			BorrowerName:  "Alice Example",
			BorrowerEmail: "alice@example.com",
			BorrowedDate:  now,
			DueDate:       now.AddDate(0, 0, cfg.DefaultLoanDays),
			Status:        catalog.StatusBorrowed,
		},
		{
			BookID:        bookIDs[2],
			BorrowerName:  "Bob Example",
			BorrowerEmail: "bob@example.com",
			BorrowedDate:  now.AddDate(0, 0, -20),
			DueDate:       now.AddDate(0, 0, -6),
			Status:        catalog.StatusBorrowed,
		},
		{
			BookID:        bookIDs[5],
			BorrowerName:  "Carol Example",
			BorrowerEmail: "carol@example.com",
			BorrowedDate:  now.AddDate(0, 0, -30),
			DueDate:       now.AddDate(0, 0, -16),
			ReturnedDate:  timePtr(now.AddDate(0, 0, -17)),
			Status:        catalog.StatusReturned,
		},
	}
	for _, loan := range seedLoans {
		if _, err := c.InsertBorrowingRecord(ctx, loan); err != nil {
			fmt.Fprintf(os.Stderr, "Error seeding borrowing for book %d: %v\n", loan.BookID, err)
			os.Exit(1)
		}
	}
	fmt.Printf("Seeded %d borrowings.\n", len(seedLoans))

	n, err := c.RunOverdueSweep(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running initial sweep: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Initial sweep marked %d loan(s) overdue.\n", n)
	fmt.Println("Seeding complete.")
}

func timePtr(t time.Time) *time.Time { return &t }
