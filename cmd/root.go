package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/alexandria/internal/collector"
	"github.com/lepinkainen/alexandria/internal/config"
	"github.com/lepinkainen/alexandria/internal/export"
	"github.com/lepinkainen/alexandria/internal/query"
)

var runCollection = collector.Run

// CLI represents the complete command structure for the alexandria application
type CLI struct {
	// Global flags
	OutputDir string `short:"o" help:"Directory that owns the collection CSV, assets and archive"`

	Collect CollectCmd `cmd:"" help:"Collect book metadata and assets from the catalogs"`
	Query   QueryCmd   `cmd:"" help:"Filter an already collected CSV database"`
}

// CollectCmd represents the collect command
type CollectCmd struct {
	TargetCount   int    `short:"n" help:"Total number of books to collect" default:"1000"`
	Languages     string `help:"Comma-separated allowed language codes (e.g. en,fr); empty for all languages"`
	SkipDownloads bool   `help:"Collect metadata only, skipping PDF and cover downloads"`
	Zip           bool   `help:"Bundle the CSV and downloaded assets into a zip archive" default:"true" negatable:""`
	SQLite        bool   `help:"Also export the collection to a SQLite database"`
	SQLiteDB      string `help:"Path to the SQLite database file" default:"./alexandria.db"`
	MaxCoverWidth int    `help:"Resize downloaded covers wider than this many pixels (0 disables)" default:"1200"`
}

// QueryCmd represents the query command
type QueryCmd struct {
	CSV      string `short:"f" help:"Path to the collection CSV (defaults to <output-dir>/books_database.csv)"`
	Search   string `help:"Match title, author or description"`
	Category string `help:"Match a category tag"`
	Language string `help:"Match the language code exactly"`
	Popular  int    `help:"Show only the N most downloaded matches"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging()
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("alexandria"),
		kong.Description("A tool to collect public-domain book metadata, PDFs and covers into a local database."),
		kong.UsageOnError(),
	)

	updateGlobalConfig(&cli)

	if err := ctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetDefault("OutputDir", "./books")
	viper.SetDefault("RequestInterval", "200ms")
	viper.SetDefault("UserAgent", "alexandria/1.0 (+https://github.com/lepinkainen/alexandria)")
	viper.SetDefault("collect.targetcount", 1000)
	viper.SetDefault("collect.languages", "")

	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Info("Config file not found, writing default config file...")
			if err := viper.SafeWriteConfig(); err != nil {
				slog.Error("Error writing config file", "error", err)
			}
		} else {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	config.SetOutputDir(cli.OutputDir)
}

// Run executes a collection run with the configured options.
func (c *CollectCmd) Run() error {
	languages := c.Languages
	if languages == "" {
		languages = viper.GetString("collect.languages")
	}

	sqlitePath := ""
	if c.SQLite {
		sqlitePath = c.SQLiteDB
	}

	opts := collector.Options{
		TargetCount:     c.TargetCount,
		Languages:       config.ParseLanguages(languages),
		DownloadAssets:  !c.SkipDownloads,
		OutputDir:       config.OutputDir,
		CreateArchive:   c.Zip,
		MaxCoverWidth:   c.MaxCoverWidth,
		RequestInterval: config.RequestInterval,
		UserAgent:       config.UserAgent,
		SQLitePath:      sqlitePath,
	}

	slog.Info("Starting collection run",
		"target", opts.TargetCount,
		"output", opts.OutputDir,
		"downloads", opts.DownloadAssets)

	summary, err := runCollection(context.Background(), opts)
	if err != nil {
		return err
	}

	slog.Info("Run report",
		"scraped", summary.ScrapedBooks,
		"with_pdfs", summary.BooksWithPDFs,
		"with_covers", summary.BooksWithCovers,
		"with_descriptions", summary.BooksWithDescriptions,
		"with_categories", summary.BooksWithCategories,
		"csv", summary.CSVDatabase)
	return nil
}

// Run executes a query against an existing collection CSV.
func (q *QueryCmd) Run() error {
	csvPath := q.CSV
	if csvPath == "" {
		csvPath = filepath.Join(config.OutputDir, export.CSVFilename)
	}

	records, err := query.Load(csvPath)
	if err != nil {
		return err
	}

	if q.Search != "" {
		records = query.Search(records, q.Search)
	}
	if q.Category != "" {
		records = query.ByCategory(records, q.Category)
	}
	if q.Language != "" {
		records = query.ByLanguage(records, q.Language)
	}
	if q.Popular > 0 {
		records = query.MostPopular(records, q.Popular)
	}

	for _, record := range records {
		fmt.Printf("%s — %s [%s/%s, %s, %d downloads]\n",
			record.Title, record.Author, record.Source, record.Identifier,
			record.Language, record.DownloadCount)
	}
	fmt.Printf("%d books matched\n", len(records))
	return nil
}

func initLogging() {
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: slog.LevelInfo,
	})

	slog.SetDefault(slog.New(handler))
}
