package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"chat-pdf/internal/chromemdb"
	"chat-pdf/internal/config"
	"chat-pdf/internal/db"
	"chat-pdf/internal/embedding"
	"chat-pdf/internal/fetcher"
	"chat-pdf/internal/helper"
	"chat-pdf/internal/llmservice"
	"chat-pdf/internal/metrics"
	"chat-pdf/internal/rag"
	"chat-pdf/internal/server"
	"chat-pdf/internal/tui"
)

const (
	configFilePath = "./configs/config.yaml"
	tuiLogFile     = "chat-pdf.log"
)

const usage = `Usage: chat-pdf [-config path] [-debug] <command> [args]

Commands:
  serve                 start the web UI and JSON API
  tui                   start the terminal shell
  process <url>...      index PDFs (URLs from stdin when none are given)
  ask <question>        answer a question from the index
  status                print the manifest of the published index
  export <file>         write the index to a single file (chromem backend)
`

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, args := flag.Arg(0), flag.Args()[1:]

	setupLogger(os.Stdout, "info", *debug)
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(os.Stdout, cfg.Log.Level, *debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		err = runServe(ctx, cfg)
	case "tui":
		err = runTUI(ctx, cfg, *debug)
	case "process":
		err = runProcess(ctx, cfg, args)
	case "ask":
		err = runAsk(ctx, cfg, strings.Join(args, " "))
	case "status":
		err = runStatus(ctx, cfg)
	case "export":
		if len(args) != 1 {
			log.Fatal().Msg("Please provide the export file path")
		}
		err = runExport(ctx, cfg, args[0])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("Command failed")
	}
}

func setupLogger(out io.Writer, level string, debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

// app holds the components shared by every command.
type app struct {
	rag     *rag.RAG
	index   rag.VectorIndex
	cleanup func()
	export  func(ctx context.Context, filePath string) error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("error initializing embedder: %w", err)
	}
	llm, err := llmservice.NewModel(ctx, &cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("error initializing llm: %w", err)
	}

	a := &app{cleanup: func() {}}
	switch cfg.Index.Backend {
	case config.BackendPGVector:
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("error connecting to database: %w", err)
		}
		dbInstance := db.NewDB(sqldb, cfg.Database.Debug)
		a.index = db.NewStore(dbInstance, cfg.Database.Table)
		a.cleanup = func() {
			if err := dbInstance.Close(); err != nil {
				log.Warn().Err(err).Msg("Error closing database")
			}
		}
	default:
		manager := chromemdb.NewVectorDBManager(cfg.Index.Path, cfg.Index.Collection,
			cfg.Index.Compress, cfg.Index.EncryptionKey, chromemEmbeddingFunc(embedder))
		a.index = manager
		a.export = manager.Export
	}

	pdfFetcher := fetcher.NewFetcher(cfg.Fetch, http.DefaultClient)
	qa := llmservice.NewQAChain(llm, cfg.RAG.Temperature)
	a.rag = rag.NewRAG(cfg, pdfFetcher, embedder, a.index, qa)
	return a, nil
}

// chromemEmbeddingFunc lets chromem-go embed on its own with the same model
// used for ingestion.
func chromemEmbeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	metrics.Register()
	srv := server.NewServer(a.rag, &cfg.Server)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runTUI(ctx context.Context, cfg *config.Config, debug bool) error {
	f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %v", err)
	}
	defer f.Close()
	setupLogger(f, cfg.Log.Level, debug)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	_, err = tea.NewProgram(tui.New(ctx, a.rag), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func runProcess(ctx context.Context, cfg *config.Config, urls []string) error {
	if len(urls) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		var b strings.Builder
		for scanner.Scan() {
			b.WriteString(scanner.Text() + "\n")
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read URLs: %v", err)
		}
		urls = fetcher.ParseURLList(b.String())
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	log.Info().Int("urls", len(urls)).Msg(rag.ProcessingMessage)
	report, err := a.rag.Ingest(ctx, urls)
	if report != nil {
		for _, w := range report.Warnings {
			log.Warn().Msg(rag.WarningMessage(w))
		}
	}
	if err != nil {
		return errors.New(rag.ErrorMessage(err))
	}

	log.Info().Str("build_id", report.BuildID).Int("documents", report.Documents).
		Int("chunks", report.Chunks).Msg(rag.ReadyMessage)
	return nil
}

func runAsk(ctx context.Context, cfg *config.Config, question string) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	response, err := a.rag.Query(ctx, question)
	if err != nil {
		return errors.New(rag.ErrorMessage(err))
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, s := range response.Sources {
		fmt.Printf("#%d (%.3f) %s\n", s.ChunkID, s.Similarity, helper.Truncate(strings.Join(strings.Fields(s.Content), " "), 120))
	}
	fmt.Println()

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)
	return nil
}

func runStatus(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	manifest, err := a.rag.Manifest(ctx)
	if err != nil {
		return errors.New(rag.ErrorMessage(err))
	}
	helper.PrettyPrint(os.Stdout, manifest)
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, filePath string) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	if a.export == nil {
		return fmt.Errorf("export is not supported by the %s backend", cfg.Index.Backend)
	}
	if err := a.export(ctx, filePath); err != nil {
		return err
	}
	log.Info().Str("file", filePath).Msg("Exported index")
	return nil
}
