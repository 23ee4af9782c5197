// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/docmill"
	"github.com/poiesic/docmill/core"
	"github.com/poiesic/docmill/parse"
	"github.com/poiesic/docmill/parse/datalab"
	"github.com/poiesic/docmill/pipeline"
)

func main() {
	app := &cli.App{
		Name:  "docmill",
		Usage: "Document ingestion and chunking pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Store a document and submit it for processing",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
				Flags: append(dataFlags(),
					&cli.StringFlag{
						Name:  "callback",
						Usage: "Webhook URL notified when the job finishes",
					},
					&cli.StringFlag{
						Name:    "webhook-secret",
						Usage:   "HMAC secret for signing callback payloads",
						EnvVars: []string{"DOCMILL_WEBHOOK_SECRET"},
					},
					&cli.IntFlag{
						Name:  "target-size",
						Usage: "Maximum chunk size in characters",
						Value: 1200,
					},
					&cli.IntFlag{
						Name:  "overlap",
						Usage: "Character overlap applied where oversized blocks are split",
					},
					&cli.Float64Flag{
						Name:  "max-overlap-ratio",
						Usage: "Bound on overlap as a fraction of target-size",
					},
					&cli.BoolFlag{
						Name:  "respect-headings",
						Usage: "Keep headings in the same chunk as the text that follows",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "splitter",
						Usage: "Oversized-block splitting strategy (sentence, recursive)",
					},
					&cli.BoolFlag{
						Name:  "force-ocr",
						Usage: "Force OCR even when the document carries a text layer",
					},
					&cli.BoolFlag{
						Name:  "use-llm",
						Usage: "Enable LLM-assisted conversion in the remote parser",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Block until the job reaches a terminal state",
					},
					&cli.DurationFlag{
						Name:  "wait-timeout",
						Usage: "Give up waiting after this long",
						Value: 30 * time.Minute,
					},
				),
			},
			{
				Name:      "status",
				Usage:     "Show the current state of a job",
				ArgsUsage: "<job-id>",
				Action:    statusCommand,
				Flags: append(dataFlags(),
					&cli.BoolFlag{
						Name:  "chunks",
						Usage: "Also print the chunk sequence of a finished job",
					},
				),
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a running job",
				ArgsUsage: "<job-id>",
				Action:    cancelCommand,
				Flags:     dataFlags(),
			},
			{
				Name:   "worker",
				Usage:  "Run the pipeline worker until interrupted",
				Action: workerCommand,
				Flags: append(dataFlags(),
					&cli.StringFlag{
						Name:    "webhook-secret",
						Usage:   "HMAC secret for signing callback payloads",
						EnvVars: []string{"DOCMILL_WEBHOOK_SECRET"},
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dataFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Path to the data directory (job store and blobs)",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "datalab-key",
			Usage:   "API key for the remote conversion service; without it only local formats parse",
			EnvVars: []string{"DATALAB_API_KEY"},
		},
	}
}

func openEngine(c *cli.Context, extra ...docmill.EngineOption) (*docmill.Engine, error) {
	opts := []docmill.EngineOption{
		docmill.WithWebhookSecret(c.String("webhook-secret")),
	}

	// Binary formats the Marker API can convert are sent to it; markdown,
	// plain text and CSV always parse in process.
	if key := c.String("datalab-key"); key != "" {
		client, err := datalab.New(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create conversion client: %w", err)
		}
		router := parse.NewRouter(parse.NewLocalParser(),
			parse.Route{Match: datalab.Supports, Parser: client})
		opts = append(opts, docmill.WithParser(router))
	} else {
		opts = append(opts, docmill.WithParser(parse.NewLocalParser()))
	}
	opts = append(opts, extra...)

	engine, err := docmill.Open(c.String("data"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	return engine, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one file argument is required")
	}
	filePath := c.Args().First()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()

	ref, err := engine.PutDocument(ctx, filepath.Base(filePath), data)
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	jobOpts := core.JobOptions{
		Chunking: core.ChunkOptions{
			TargetSize:      c.Int("target-size"),
			Overlap:         c.Int("overlap"),
			MaxOverlapRatio: c.Float64("max-overlap-ratio"),
			RespectHeadings: c.Bool("respect-headings"),
			Splitter:        c.String("splitter"),
		},
		Parsing: core.ParseOptions{
			ForceOCR: c.Bool("force-ocr"),
			UseLLM:   c.Bool("use-llm"),
		},
	}

	job, err := engine.Submit(ctx, ref, jobOpts, c.String("callback"))
	if err != nil {
		return fmt.Errorf("submission rejected: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Document: %s\n", ref)
	fmt.Fprintf(os.Stderr, "Job: %d (%s)\n", uint64(job.Id), job.State)

	if !c.Bool("wait") {
		return nil
	}

	final, err := awaitTerminal(ctx, engine, job.Id, c.Duration("wait-timeout"))
	if err != nil {
		return err
	}
	if final.State != core.StateSucceeded {
		return fmt.Errorf("job ended %s: %s", final.State, errorDetail(final))
	}

	manifest, err := engine.Manifest(ctx, final.Id)
	if err != nil {
		return err
	}
	return printJSON(manifest)
}

func statusCommand(c *cli.Context) error {
	id, err := jobIDArg(c)
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()

	job, err := engine.Status(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up job %d: %w", uint64(id), err)
	}
	if err := printJSON(newJobView(job)); err != nil {
		return err
	}

	if c.Bool("chunks") && job.ResultRef != "" {
		manifest, err := engine.Manifest(ctx, id)
		if err != nil {
			return err
		}
		chunks, err := engine.Chunks(ctx, manifest)
		if err != nil {
			return err
		}
		return printJSON(chunks)
	}
	return nil
}

func cancelCommand(c *cli.Context) error {
	id, err := jobIDArg(c)
	if err != nil {
		return err
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	job, err := engine.Cancel(context.Background(), id)
	if err != nil {
		return fmt.Errorf("failed to cancel job %d: %w", uint64(id), err)
	}

	fmt.Fprintf(os.Stderr, "Job: %d (%s)\n", uint64(job.Id), job.State)
	return nil
}

// workerCommand keeps the engine open so its lease sweep picks up and
// drives any unfinished jobs in the store.
func workerCommand(c *cli.Context) error {
	engine, err := openEngine(c,
		docmill.WithPipelineOptions(pipeline.WithMonitor(&pipeline.LogMonitor{})))
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintf(os.Stderr, "Worker running on %s, Ctrl-C to stop\n", c.String("data"))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	fmt.Fprintln(os.Stderr, "Shutting down")
	return nil
}

func jobIDArg(c *cli.Context) (core.ID, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("exactly one job-id argument is required")
	}
	raw, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q: %w", c.Args().First(), err)
	}
	return core.ID(raw), nil
}

func awaitTerminal(ctx context.Context, engine *docmill.Engine, id core.ID, timeout time.Duration) (*core.Job, error) {
	deadline := time.Now().Add(timeout)
	for {
		job, err := engine.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.State.Terminal() {
			return job, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("job %d still %s after %s", uint64(id), job.State, timeout)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func errorDetail(job *core.Job) string {
	if job.LastError == nil {
		return "no error recorded"
	}
	return fmt.Sprintf("%s: %s", job.LastError.Reason, job.LastError.Detail)
}

// jobView is the status output shape: stable field names, no internal
// bookkeeping like the owner token.
type jobView struct {
	ID          string             `json:"id"`
	State       string             `json:"state"`
	DocumentRef string             `json:"document_ref"`
	ResultRef   string             `json:"result_ref,omitempty"`
	Attempts    core.StageAttempts `json:"attempt_counts"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	LastError   *core.JobError     `json:"last_error,omitempty"`
}

func newJobView(job *core.Job) jobView {
	return jobView{
		ID:          strconv.FormatUint(uint64(job.Id), 10),
		State:       job.State.String(),
		DocumentRef: job.DocumentRef,
		ResultRef:   job.ResultRef,
		Attempts:    job.Attempts,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		LastError:   job.LastError,
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
