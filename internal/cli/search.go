package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
)

// SearchCommand queries the catalog from the terminal.
type SearchCommand struct {
	Query   string
	BaseURL string
	APIKey  string
	Limit   int
	Timeout time.Duration

	Out io.Writer
}

func NewSearchCommand() *SearchCommand {
	return &SearchCommand{Out: os.Stdout}
}

func (cmd *SearchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)

	fs.StringVar(&cmd.Query, "q", "", "Search query: title, author or ISBN (required)")
	fs.StringVar(&cmd.BaseURL, "base-url", config.DefaultCatalogBaseURL, "Catalog API root")
	fs.StringVar(&cmd.APIKey, "api-key", os.Getenv("CATALOG_API_KEY"), "Catalog API key (optional)")
	fs.IntVar(&cmd.Limit, "limit", 10, "Maximum number of results (1-40)")
	fs.DurationVar(&cmd.Timeout, "timeout", 10*time.Second, "Request timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s search -q <query> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Search the book catalog and print matching volumes.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s search -q \"dune herbert\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s search -q isbn:9780441172719\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Allow the query as positional arguments too.
	if cmd.Query == "" {
		cmd.Query = strings.Join(fs.Args(), " ")
	}
	if strings.TrimSpace(cmd.Query) == "" {
		fs.Usage()
		return fmt.Errorf("query is required")
	}
	return nil
}

func (cmd *SearchCommand) Run() error {
	client := catalog.NewClient(config.Catalog{
		BaseURL:    cmd.BaseURL,
		APIKey:     cmd.APIKey,
		MaxResults: cmd.Limit,
		Timeout:    cmd.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	entries, err := client.Search(ctx, cmd.Query)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.Out, "No results found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHORS\tPUBLISHED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Title, e.AuthorLine(), catalog.FormatPublishedDate(e.PublishedDate))
	}
	return w.Flush()
}
