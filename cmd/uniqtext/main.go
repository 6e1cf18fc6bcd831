package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"uniqtext/internal/config"
	"uniqtext/internal/crawler"
	"uniqtext/internal/db"
	"uniqtext/internal/logger"
	"uniqtext/internal/observability"
	"uniqtext/internal/pipeline"
	"uniqtext/internal/repository"
	"uniqtext/internal/rewrite"
	"uniqtext/internal/storage"
)

// go run ./cmd/uniqtext -urls="https://example.com/a,https://example.com/b"
// go run ./cmd/uniqtext            (asks for the URLs on stdin)
func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Критическая ошибка: %v\n", r)
			os.Exit(1)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// An interrupt drops all in-flight work: no draining, no waiting for workers.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
		fmt.Fprintln(os.Stderr, "\nПрервано пользователем")
		os.Exit(1)
	}()

	app := &cli.Command{
		Name:  "uniqtext",
		Usage: "собирает карточки товаров и генерирует для них уникальные описания",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "urls",
				Usage: fmt.Sprintf("URL через запятую (максимум %d); без флага спросит в консоли", pipeline.MaxURLs),
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "файл с переменными окружения",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "путь к таблице .xlsx (по умолчанию OUTPUT_PATH)",
			},
		},
		Action: run,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			os.Exit(exit.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Критическая ошибка: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.Load(cmd.String("env"))
	if out := cmd.String("output"); out != "" {
		cfg.OutputPath = out
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("конфигурация: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	}).With("run_id", uuid.NewString())

	if err := observability.Start(cfg.MetricsPort); err != nil {
		return fmt.Errorf("метрики: %w", err)
	}

	input := cmd.String("urls")
	if input == "" {
		var err error
		input, err = askURLs(os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
	}

	begin := time.Now()
	urls := pipeline.ParseURLList(input)
	if len(urls) == 0 {
		fmt.Println("Не введено ни одного URL")
		return nil
	}
	if err := checkURLCap(urls, os.Stdout); err != nil {
		return err
	}

	p, closeAll, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAll()

	fmt.Printf("Обрабатываю %d URL:\n", len(urls))
	for _, u := range urls {
		fmt.Printf("- %s\n", u)
	}

	outcomes, err := pipeline.NewRunner(p, log).Run(ctx, urls)
	if err != nil {
		return err
	}

	fmt.Println("Все задачи завершены! Результаты:")
	for _, o := range outcomes {
		status := "Успех"
		if !o.Succeeded {
			status = "Ошибка"
		}
		fmt.Printf("%s: %s\n", o.URL, status)
	}
	ok, failed := pipeline.Tally(outcomes)
	fmt.Printf("Успешно: %d, с ошибкой: %d\n", ok, failed)
	fmt.Printf("Общее время выполнения операций над %d URL составило %.2f сек\n", len(urls), time.Since(begin).Seconds())
	return nil
}

// checkURLCap reports an oversized list on out and returns a silent exit-1
// error, so the message is printed once.
func checkURLCap(urls []string, out io.Writer) error {
	if len(urls) <= pipeline.MaxURLs {
		return nil
	}
	fmt.Fprintf(out, "Ошибка: превышено максимальное количество URL (%d)\n", pipeline.MaxURLs)
	fmt.Fprintln(out, "Пожалуйста, запустите программу несколько раз для обработки всех URL")
	return cli.Exit("", 1)
}

func askURLs(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintf(out, "Введите URL через запятую (максимум %d): ", pipeline.MaxURLs)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("чтение ввода: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// buildPipeline wires the components. The returned func releases the
// optional Redis and Postgres connections.
func buildPipeline(ctx context.Context, cfg *config.Config, log *slog.Logger) (*pipeline.Pipeline, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	storeOpts := []storage.Option{storage.WithLogger(log)}
	if cfg.RedisURL != "" {
		client, err := storage.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { client.Close() })
		storeOpts = append(storeOpts, storage.WithLocker(storage.NewRedisLocker(client, cfg.OutputPath, cfg.LockTTL)))
		log.Info("cross-process table lock enabled")
	}
	store := storage.NewXLSXStore(cfg.OutputPath, storeOpts...)

	pipeOpts := []pipeline.Option{pipeline.WithLogger(log)}
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		repo := &repository.RowRepository{DB: pool}
		if err := repo.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		pipeOpts = append(pipeOpts, pipeline.WithMirror(repo))
		log.Info("postgres mirror enabled")
	}

	names := make([]string, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		names = append(names, pc.Name)
	}
	log.Info("rewrite providers",
		"order", strings.Join(names, ","),
		"deadline", cfg.RewriteDeadline,
		"attempt_timeout", cfg.RewriteAttemptTimeout)

	chain := rewrite.NewChain(rewrite.NewProviders(cfg.Providers), cfg.RewriteAttemptTimeout, log)
	p := pipeline.New(
		crawler.NewFetcher(cfg.FetchTimeout),
		crawler.NewExtractor(cfg.SiteName),
		rewrite.NewClient(chain, cfg.RewriteDeadline, log),
		store,
		pipeOpts...,
	)
	return p, closeAll, nil
}
