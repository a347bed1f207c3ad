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
	"log"
	"os"

	"github.com/poiesic/gleaner/answer"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	dbFlag := &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory (default from config: ./gleaner.db)",
	}
	apiKeyFlag := &cli.StringFlag{
		Name:    "api-key",
		Usage:   "API key for the OpenAI-compatible service",
		EnvVars: []string{"OPENAI_API_KEY"},
	}
	embeddingFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
		},
	}

	return &cli.App{
		Name:  "gleaner",
		Usage: "Index web articles from sitemaps and answer questions about them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
				EnvVars: []string{"GLEANER_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Fetch, chunk, embed and index the articles listed in sitemaps",
				Action: ingestCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					apiKeyFlag,
					&cli.StringSliceFlag{
						Name:    "sitemap",
						Aliases: []string{"s"},
						Usage:   "Sitemap URL (repeatable)",
					},
					&cli.StringFlag{
						Name:  "base-url",
						Usage: "Site root searched for a sitemap when no --sitemap is given",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of article URLs (0 = no limit)",
					},
					&cli.IntFlag{
						Name:  "sitemap-limit",
						Usage: "Maximum number of sitemaps to fetch (default derived from --limit)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent fetch workers",
					},
					&cli.DurationFlag{
						Name:  "interval",
						Usage: "Minimum delay between two requests of one worker",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Fetch, parse and chunk only; embed and write nothing",
					},
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Re-fetch indexed URLs and re-index those whose content changed",
					},
					&cli.BoolFlag{
						Name:  "all-urls",
						Usage: "Disable the article path filter",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks per embedding request",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Chunk size in characters",
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared by consecutive chunks",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Retries for transient fetch failures",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential fetch backoff",
					},
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Do not print the progress line",
					},
				}, embeddingFlags...),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the indexed articles",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					apiKeyFlag,
					&cli.IntFlag{
						Name:    "chunks",
						Aliases: []string{"n"},
						Usage:   "Number of excerpts to retrieve (1-20)",
						Value:   answer.DefaultChunks,
					},
					&cli.StringFlag{
						Name:  "section",
						Usage: "Only use articles from this section",
					},
					&cli.StringFlag{
						Name:  "author",
						Usage: "Only use articles by this author",
					},
					&cli.StringFlag{
						Name:  "chat-host",
						Usage: "Chat completion service host URL",
					},
					&cli.StringFlag{
						Name:  "chat-model",
						Usage: "Chat model name",
					},
				}, embeddingFlags...),
			},
			{
				Name:   "serve",
				Usage:  "Serve the answer API over HTTP (POST /ask, GET /health)",
				Action: serveCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					apiKeyFlag,
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (default from config: :8000)",
					},
					&cli.StringFlag{
						Name:  "chat-host",
						Usage: "Chat completion service host URL",
					},
					&cli.StringFlag{
						Name:  "chat-model",
						Usage: "Chat model name",
					},
				}, embeddingFlags...),
			},
			{
				Name:   "inspect",
				Usage:  "Show index statistics, sample chunks and an optional test query",
				Action: inspectCommand,
				Flags: append([]cli.Flag{
					dbFlag,
					apiKeyFlag,
					&cli.IntFlag{
						Name:  "sample",
						Usage: "Number of sample chunks to show",
						Value: 3,
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Run a test retrieval for this query",
					},
				}, embeddingFlags...),
			},
			{
				Name:   "ledger",
				Usage:  "List the articles recorded in the ingest ledger",
				Action: ledgerCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Show at most this many entries (0 = all)",
					},
				},
			},
		},
	}
}
