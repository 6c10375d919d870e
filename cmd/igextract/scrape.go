package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igextract/pkg/config"
	"igextract/pkg/logger"
	"igextract/pkg/scraper"
	"igextract/pkg/sink"
	"igextract/pkg/ui"
)

// stdoutOutput selects the writer sink on standard output
const stdoutOutput = "-"

var (
	// Scrape command flags
	maxPosts          int
	proxies           []string
	profileSource     string
	outputDir         string
	skipPosts         bool
	pageDelay         time.Duration
	requestsPerMinute int
	maxAttempts       int
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <username>",
	Short: "Extract profile and posts for a user",
	Long: `Fetch the profile and timeline posts of a public Instagram user and write
them to {output}/{username}_data.json.

Pagination stops when the post limit is reached, when there are no more pages,
or after three consecutive pages without new posts. A failed profile fetch is
reported but the posts are still collected and saved.`,
	Example: `  # Extract up to 100 posts into the current directory
  igextract scrape natgeo

  # Limit posts and write to a directory
  igextract scrape natgeo --max-posts 20 --output ./data

  # Rotate through proxies and print the document to stdout
  igextract scrape natgeo --proxy http://10.0.0.1:8080 --proxy socks5://10.0.0.2:1080 --output -

  # Read the profile from the HTML page instead of the API
  igextract scrape natgeo --profile-source html`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().IntVarP(&maxPosts, "max-posts", "n", 0, "maximum number of posts, 0 for no limit (default from config: 100)")
	scrapeCmd.Flags().StringArrayVar(&proxies, "proxy", nil, "proxy URL, repeatable (http, https, socks5)")
	scrapeCmd.Flags().StringVar(&profileSource, "profile-source", "", "profile source: api or html (default api)")
	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory, or - for stdout (default: current directory)")
	scrapeCmd.Flags().BoolVar(&skipPosts, "skip-posts", false, "fetch the profile only")
	scrapeCmd.Flags().DurationVar(&pageDelay, "page-delay", 0, "pause between page requests (default 2s)")
	scrapeCmd.Flags().IntVar(&requestsPerMinute, "requests-per-minute", 0, "cap outbound requests per minute, 0 to disable")
	scrapeCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "attempts for the HTML profile fetch (default 3)")
}

// collectFlags returns only the flags the user set, keyed as config expects
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("max-posts") {
		flags["max-posts"] = maxPosts
	}
	if changed("proxy") {
		flags["proxy"] = proxies
	}
	if changed("profile-source") {
		flags["profile-source"] = profileSource
	}
	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("skip-posts") {
		flags["skip-posts"] = skipPosts
	}
	if changed("page-delay") {
		flags["page-delay"] = pageDelay
	}
	if changed("requests-per-minute") {
		flags["requests-per-minute"] = requestsPerMinute
	}
	if changed("max-attempts") {
		flags["max-attempts"] = maxAttempts
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

// newSink picks the sink for the configured output
func newSink(cfg *config.Config) (sink.Sink, error) {
	if cfg.Output.Directory == stdoutOutput {
		return sink.NewWriterSink(os.Stdout, cfg.Output.Pretty), nil
	}
	return sink.NewJSONFileSink(cfg.Output.Directory, cfg.Output.Pretty)
}

func runScrape(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(os.Stderr, quiet)

	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = log.WithField("version", version)

	out, err := newSink(cfg)
	if err != nil {
		return err
	}

	s, err := scraper.New(cfg, out, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer.Info("Target Profile", args[0])
	result, err := s.Run(ctx, args[0], cfg.Fetch.MaxPosts)
	if err != nil {
		printer.Error("Extraction failed", err)
		return err
	}

	printSummary(printer, out, result)
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printSummary(p *ui.Printer, out sink.Sink, result *scraper.Result) {
	if result.ProfileErr != nil {
		p.Warning("Profile unavailable", result.ProfileErr)
	} else if result.Profile != nil {
		p.Info("Followers", result.Profile.FollowerCount)
	}

	p.Info("Posts", len(result.Posts))
	p.Info("Pages", result.Pages)
	if result.PostsState == scraper.StateAborted {
		p.Warning("Pagination aborted", result.Reason)
	} else if result.Reason != "" {
		p.Note("Stopped: " + result.Reason)
	}

	if fs, ok := out.(*sink.JSONFileSink); ok {
		p.Info("Saved", fs.Path(result.Username))
	}
	p.Success("Extraction complete")
}
