// runpipeline runs a single pipeline invocation and exits. It is meant for
// cron and ad-hoc use alongside the long-running server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	_ "time/tzdata"

	"github.com/leeaandrob/knowledgeworker/internal/app"
	"github.com/leeaandrob/knowledgeworker/internal/config"
	"github.com/leeaandrob/knowledgeworker/internal/pipeline"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	flagQuery    string
	flagLanguage string
	flagLimit    int
	flagFile     string
	flagJSON     bool
)

var rootCmd = &cobra.Command{
	Use:           "runpipeline",
	Short:         "Run a knowledge worker pipeline once",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Fetch, summarize and store news for a query",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(cmd.Context(), func(ctx context.Context, c *app.Components, cfg *config.Config) error {
			req := pipeline.NewsRequest{
				Query:    cfg.NewsQuery,
				Language: cfg.NewsLanguage,
				Limit:    cfg.NewsLimit,
			}
			if flagQuery != "" {
				req.Query = flagQuery
			}
			if flagLanguage != "" {
				req.Language = flagLanguage
			}
			if flagLimit > 0 {
				req.Limit = flagLimit
			}

			result, err := c.Pipeline.News(ctx, req)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(result.Record)
			}

			fmt.Printf("Stored %d item(s) for %q (record %s)\n\n", len(result.Items), req.Query, result.Record.ID.Hex())
			for i, item := range result.Items {
				fmt.Printf("%d. %s\n", i+1, item.Title)
			}
			fmt.Printf("\n%s\n", result.Summary.Text)
			return nil
		})
	},
}

var quoteCmd = &cobra.Command{
	Use:   "quote [symbol]",
	Short: "Fetch and store a stock quote",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(cmd.Context(), func(ctx context.Context, c *app.Components, cfg *config.Config) error {
			symbol := cfg.QuoteSymbol
			if len(args) == 1 {
				symbol = args[0]
			}

			result, err := c.Pipeline.Quote(ctx, symbol)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(result.Record)
			}

			fmt.Printf("%s %.2f  change %+.2f  trend %s  (%s)\n",
				result.Snapshot.Symbol, result.Snapshot.Price, result.Change, result.Trend, result.Snapshot.Mode)
			return nil
		})
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize text from a file or stdin without storing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var in io.Reader = os.Stdin
		if flagFile != "" {
			f, err := os.Open(flagFile)
			if err != nil {
				return fmt.Errorf("opening input: %w", err)
			}
			defer f.Close()
			in = f
		}

		text, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		if strings.TrimSpace(string(text)) == "" {
			return fmt.Errorf("no text to summarize")
		}

		reducer, err := app.NewReducer(cfg)
		if err != nil {
			return err
		}

		result := reducer.Reduce(cmd.Context(), string(text), cfg.WordBudget)
		if flagJSON {
			return printJSON(result)
		}
		fmt.Println(result.Text)
		return nil
	},
}

func init() {
	newsCmd.Flags().StringVar(&flagQuery, "query", "", "search query (default from NEWS_QUERY)")
	newsCmd.Flags().StringVar(&flagLanguage, "language", "", "feed language (default from NEWS_LANGUAGE)")
	newsCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum items (default from NEWS_LIMIT)")
	summarizeCmd.Flags().StringVar(&flagFile, "file", "", "read text from file instead of stdin")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print the result as JSON")

	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(summarizeCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func withComponents(ctx context.Context, fn func(context.Context, *app.Components, *config.Config) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.JobTimeout)
	defer cancel()

	components, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer components.Store.Close(context.Background())

	return fn(ctx, components, cfg)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("Pipeline run failed")
		os.Exit(1)
	}
}
