package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"library-catalog/catalog"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the catalog error taxonomy onto CLI exit codes the way an
// HTTP layer would map it onto status codes.
func exitCode(err error) int {
	switch {
	case catalog.IsNotFound(err):
		return 2
	case catalog.IsBadRequest(err):
		return 3
	case catalog.IsConflict(err):
		return 4
	default:
		return 1
	}
}

func openCatalog() (*catalog.Catalog, error) {
	cfg, err := catalog.LoadConfig()
	if err != nil {
		return nil, err
	}
	return catalog.Open(cfg, nil)
}

// withCatalog opens the catalog for one command invocation and closes it
// afterwards.
func withCatalog(fn func(cmd *cobra.Command, args []string, c *catalog.Catalog) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := openCatalog()
		if err != nil {
			return err
		}
		defer c.Close()
		return fn(cmd, args, c)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library-catalog",
		Short:         "Library catalog with a borrowing workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(authorCmd(), bookCmd(), borrowCmd(), returnCmd(), loansCmd(), sweepCmd())
	return root
}

// ------------------ authors ------------------

func authorCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "author", Short: "Manage authors"}

	var first, last, nationality, bio string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an author",
		RunE: withCatalog(func(cmd *cobra.Command, _ []string, c *catalog.Catalog) error {
			in := catalog.NewAuthor{FirstName: first, LastName: last}
			if nationality != "" {
				in.Nationality = &nationality
			}
			if bio != "" {
				in.Biography = &bio
			}
			a, err := c.CreateAuthor(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("Added author %d: %s %s\n", a.ID, a.FirstName, a.LastName)
			return nil
		}),
	}
	add.Flags().StringVar(&first, "first", "", "first name")
	add.Flags().StringVar(&last, "last", "", "last name")
	add.Flags().StringVar(&nationality, "nationality", "", "nationality")
	add.Flags().StringVar(&bio, "bio", "", "biography")
	add.MarkFlagRequired("first")
	add.MarkFlagRequired("last")

	var page, limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List authors",
		RunE: withCatalog(func(cmd *cobra.Command, _ []string, c *catalog.Catalog) error {
			res, err := c.ListAuthors(cmd.Context(), catalog.PageRequest{Page: page, Limit: limit})
			if err != nil {
				return err
			}
			for _, a := range res.Authors {
				nat := ""
				if a.Nationality != nil {
					nat = *a.Nationality
				}
				fmt.Printf("%-5d %-20s %-20s %s\n", a.ID, a.FirstName, a.LastName, nat)
			}
			fmt.Printf("page %d/%d (%d total)\n", res.Page, res.TotalPages, res.Total)
			return nil
		}),
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&limit, "limit", 20, "page size")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an author (fails while books reference it)",
		Args:  cobra.ExactArgs(1),
		RunE: withCatalog(func(cmd *cobra.Command, args []string, c *catalog.Catalog) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.DeleteAuthor(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Deleted author %d\n", id)
			return nil
		}),
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}

// ------------------ books ------------------

func bookCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage books"}

	var title, isbn, genre string
	var authorID int64
	var year int
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		RunE: withCatalog(func(cmd *cobra.Command, _ []string, c *catalog.Catalog) error {
			in := catalog.NewBook{Title: title, ISBN: isbn, AuthorID: authorID, PublishedYear: year}
			if genre != "" {
				in.Genre = &genre
			}
			b, err := c.CreateBook(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("Added book %d: %s (isbn %s)\n", b.ID, b.Title, b.ISBN)
			return nil
		}),
	}
	add.Flags().StringVar(&title, "title", "", "title")
	add.Flags().StringVar(&isbn, "isbn", "", "isbn")
	add.Flags().Int64Var(&authorID, "author", 0, "author id")
	add.Flags().IntVar(&year, "year", 0, "published year")
	add.Flags().StringVar(&genre, "genre", "", "genre")
	add.MarkFlagRequired("title")
	add.MarkFlagRequired("isbn")
	add.MarkFlagRequired("author")

	var page, limit int
	var filterAuthor int64
	var filterGenre string
	var availableOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List books",
		RunE: withCatalog(func(cmd *cobra.Command, _ []string, c *catalog.Catalog) error {
			res, err := c.ListBooks(cmd.Context(),
				catalog.BookFilter{AuthorID: filterAuthor, Genre: filterGenre, AvailableOnly: availableOnly},
				catalog.PageRequest{Page: page, Limit: limit})
			if err != nil {
				return err
			}
			for _, b := range res.Books {
				genre := ""
				if b.Genre != nil {
					genre = *b.Genre
				}
				fmt.Printf("%-5d %-35s %-15s %-12s available=%t\n", b.ID, b.Title, b.ISBN, genre, b.Available)
			}
			fmt.Printf("page %d/%d (%d total)\n", res.Page, res.TotalPages, res.Total)
			return nil
		}),
	}
	list.Flags().IntVar(&page, "page", 1, "page number")
	list.Flags().IntVar(&limit, "limit", 20, "page size")
	list.Flags().Int64Var(&filterAuthor, "author", 0, "filter by author id")
	list.Flags().StringVar(&filterGenre, "genre", "", "filter by genre")
	list.Flags().BoolVar(&availableOnly, "available", false, "only available books")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a book (fails while a loan is open)",
		Args:  cobra.ExactArgs(1),
		RunE: withCatalog(func(cmd *cobra.Command, args []string, c *catalog.Catalog) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.DeleteBook(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("Deleted book %d\n", id)
			return nil
		}),
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}

// ------------------ circulation ------------------

func borrowCmd() *cobra.Command {
	var name, email string
	var days int
	cmd := &cobra.Command{
		Use:   "borrow <book-id>",
		Short: "Borrow a book",
		Args:  cobra.ExactArgs(1),
		RunE: withCatalog(func(cmd *cobra.Command, args []string, c *catalog.Catalog) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := c.Borrow(cmd.Context(), catalog.BorrowRequest{
				BookID:        bookID,
				BorrowerName:  name,
				BorrowerEmail: email,
				LoanDays:      days,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Borrowing %d opened, due %s\n", b.ID, b.DueDate.Format("2006-01-02"))
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "borrower name")
	cmd.Flags().StringVar(&email, "email", "", "borrower email")
	cmd.Flags().IntVar(&days, "days", 0, "loan days (default from config)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <borrowing-id>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: withCatalog(func(cmd *cobra.Command, args []string, c *catalog.Catalog) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			res, err := c.Return(cmd.Context(), id)
			if err != nil {
				return err
			}
			if res.WasOverdue {
				fmt.Printf("Borrowing %d returned %d day(s) late\n", id, res.DaysLate)
			} else {
				fmt.Printf("Borrowing %d returned on time\n", id)
			}
			return nil
		}),
	}
}

func loansCmd() *cobra.Command {
	var bookID int64
	var email, status string
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List borrowings",
		RunE: withCatalog(func(cmd *cobra.Command, _ []string, c *catalog.Catalog) error {
			loans, err := c.ListBorrowings(cmd.Context(), catalog.BorrowingFilter{
				BookID:        bookID,
				BorrowerEmail: email,
				Status:        catalog.BorrowingStatus(strings.ToUpper(status)),
			})
			if err != nil {
				return err
			}
			for _, l := range loans {
				fmt.Printf("%-5d book=%-5d %-25s %-10s due %s\n",
					l.ID, l.BookID, l.BorrowerEmail, l.Status, l.DueDate.Format("2006-01-02"))
			}
			return nil
		}),
	}
	cmd.Flags().Int64Var(&bookID, "book", 0, "filter by book id")
	cmd.Flags().StringVar(&email, "borrower", "", "filter by borrower email")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (borrowed|overdue|returned)")
	return cmd
}

func sweepCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mark overdue loans; --watch keeps the scheduler running",
		RunE: withCatalog(func(cmd *cobra.Command, _ []string, c *catalog.Catalog) error {
			if !watch {
				n, err := c.RunOverdueSweep(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Marked %d loan(s) overdue\n", n)
				return nil
			}

			if err := c.StartSweeper(); err != nil {
				return err
			}
			fmt.Println("Sweeper running, press Ctrl-C to stop")
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			fmt.Println("Stopping")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "run the recurring sweeper until interrupted")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
