package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"mb-mentor/internal/config"
	"mb-mentor/internal/ingest"
	"mb-mentor/internal/retrieval"
)

// ingest indexes MusicBlocks documentation into the vector store so the
// mentors can ground their questions in it. Sources are URLs or local
// markdown/text files, one per argument.
func main() {
	configPath := flag.String("config", "config.json", "path to config.json")
	chunkSize := flag.Int("chunk-size", 1000, "target chunk size in characters")
	timeout := flag.Duration("timeout", 30*time.Second, "per-page fetch timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingest [flags] <url-or-file> ...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	store, err := retrieval.NewStore(cfg.Qdrant.URL, cfg.Qdrant.Collection, cfg.Qdrant.APIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Vector store error: %v\n", err)
		os.Exit(1)
	}
	embedder := retrieval.NewEmbedder(cfg.Embedding.URL, cfg.Embedding.Name)
	fetcher := ingest.NewFetcher(*timeout, "mb-mentor-ingest/1.0", 10)
	pipeline := ingest.NewPipeline(fetcher, embedder, store, *chunkSize)

	ctx := context.Background()
	total := 0
	failed := 0
	for _, source := range flag.Args() {
		var n int
		var err error
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			n, err = pipeline.IngestURL(ctx, source)
		} else {
			n, err = pipeline.IngestFile(ctx, source)
		}
		if err != nil {
			log.Printf("[Ingest] %s failed: %v", source, err)
			failed++
			continue
		}
		total += n
	}

	fmt.Printf("Indexed %d chunks from %d sources (%d failed)\n", total, flag.NArg()-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
