package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/imagegen"
	"github.com/nawabsahab16/ancestral-ai/internal/imaging"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
	"github.com/nawabsahab16/ancestral-ai/internal/pipeline"
	"github.com/nawabsahab16/ancestral-ai/internal/predict"
	"github.com/nawabsahab16/ancestral-ai/internal/present"
	"github.com/nawabsahab16/ancestral-ai/internal/providers/replicate"
	"github.com/nawabsahab16/ancestral-ai/internal/storage"
	"github.com/nawabsahab16/ancestral-ai/internal/storage/inline"
	"github.com/nawabsahab16/ancestral-ai/internal/upload"
)

func main() {
	_ = godotenv.Load()
	os.Exit(exitCode(run(os.Args[1:], os.Stderr), os.Stderr))
}

// run executes one prediction and returns instead of exiting so deferred
// cleanup always happens.
func run(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("ancestor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		paths  = map[domain.Generation]*string{}
		user   string
		token  string
		out    string
		remote bool
		share  bool
	)
	for _, g := range domain.Generations {
		paths[g] = fs.String(string(g), "", fmt.Sprintf("path to the %s photo", g))
	}
	fs.StringVar(&user, "user", os.Getenv("USER"), "user id the prediction is recorded for")
	fs.StringVar(&token, "token", "", "bearer token sent to the inference function")
	fs.StringVar(&out, "out", present.Filename, "where to write the result image")
	fs.BoolVar(&remote, "remote", false, "call PREDICT_FUNCTION_URL instead of generating in-process")
	fs.BoolVar(&share, "share", false, "copy the result URL to the clipboard")
	if err := fs.Parse(args); err != nil {
		return err
	}

	photos, err := readPhotos(paths)
	if err != nil {
		return err
	}
	cfg, err := infra.LoadCLIConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "ancestor").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, _, err := storage.FromConfig(cfg)
	if err != nil {
		return err
	}
	cache, redisClient, err := inline.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var client predict.Client
	if remote {
		client = predict.NewFunctionClient(cfg.PredictFunctionURL, cfg.PredictFunctionAPIKey, nil)
	} else {
		rc, err := replicate.NewClient(replicate.Options{
			APIToken:     cfg.ReplicateAPIToken,
			BaseURL:      cfg.ReplicateBaseURL,
			PollInterval: cfg.ReplicatePollInterval,
			MaxPolls:     cfg.ReplicateMaxPolls,
			Logger:       &logger,
		})
		if err != nil {
			return err
		}
		client = predict.NewLocalClient(imagegen.NewAncestorGenerator(rc, imagegen.ModelConfig{
			Primary:   cfg.ReplicateModel,
			Secondary: cfg.ReplicateFallbackModel,
		}, logger))
	}

	loader := imaging.NewLoader(&http.Client{Timeout: 30 * time.Second})
	orch := pipeline.NewOrchestrator(
		upload.New(store, cache, logger),
		predict.NewRequester(client, imaging.NewRasterCompositor(loader), logger),
		pipeline.Options{MaxRetries: cfg.PipelineMaxRetries, RetryDelay: cfg.PipelineRetryDelay},
		logger,
	)

	notice := func(n domain.Notice) { printNotice(stderr, n) }
	owner := domain.Owner{UserID: user, Token: token}
	outcome, err := orch.Run(ctx, owner, photos, pipeline.ReporterFunc(func(p pipeline.Progress) {
		printProgress(stderr, p)
	}), domain.NotifierFunc(notice))
	if err != nil {
		return err
	}

	if err := save(ctx, loader, outcome.Result.URL, out); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "saved %s\n", out)

	if outcome.Result.Fallback {
		fmt.Fprintln(stderr, "result was composed locally from the uploaded photos")
	}

	if share {
		method, err := present.NewSharer(nil).Share(ctx, outcome.Result.URL)
		if err != nil {
			return err
		}
		notice(method.Notice())
	}
	return nil
}

// save downloads the result to path, removing a partial file on failure.
func save(ctx context.Context, fetcher present.Fetcher, url, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	_, err = present.Download(ctx, fetcher, url, f)
	return err
}

func readPhotos(paths map[domain.Generation]*string) (domain.PhotoSet, error) {
	set := make(domain.PhotoSet, len(paths))
	for _, g := range domain.Generations {
		path := strings.TrimSpace(*paths[g])
		if path == "" {
			return nil, fmt.Errorf("-%s is required", g)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s photo: %w", g, err)
		}
		p := domain.Photo{Filename: filepath.Base(path), Data: data}
		if err := upload.Validate(p, g); err != nil {
			return nil, err
		}
		set[g] = p
	}
	return set, nil
}

func printProgress(w io.Writer, p pipeline.Progress) {
	if p.Retries > 0 && p.Stage != domain.StageFailed {
		fmt.Fprintf(w, "[%3d%%] %s (retry %d)\n", p.Percent, p.Stage.Label(), p.Retries)
		return
	}
	fmt.Fprintf(w, "[%3d%%] %s\n", p.Percent, p.Stage.Label())
}

func printNotice(w io.Writer, n domain.Notice) {
	if n.Description != "" {
		fmt.Fprintf(w, "%s: %s (%s)\n", n.Level, n.Title, n.Description)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", n.Level, n.Title)
}

// exitCode reports err and maps it to the process status.
func exitCode(err error, w io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, domain.ErrNotAuthenticated):
		fmt.Fprintln(w, "a user id is required; pass -user")
		return 2
	default:
		fmt.Fprintln(w, err)
		return 1
	}
}
