package main

import (
	"fmt"
	"log"
	"os"

	"mb-mentor/internal/api"
	"mb-mentor/internal/archive"
	"mb-mentor/internal/config"
	"mb-mentor/internal/db"
	"mb-mentor/internal/dialogue"
	"mb-mentor/internal/llm"
	redisdb "mb-mentor/internal/redis"
	"mb-mentor/internal/retrieval"
	"mb-mentor/internal/session"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := db.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	rdb := redisdb.NewClient(cfg)

	// Retrieval is an enhancement: if the vector store is down the mentors
	// still answer, just without documentation context.
	var gate *retrieval.Gate
	store, err := retrieval.NewStore(cfg.Qdrant.URL, cfg.Qdrant.Collection, cfg.Qdrant.APIKey)
	if err != nil {
		log.Printf("[Main] WARNING: vector store unavailable, running without retrieval: %v", err)
		gate = retrieval.NewGate(nil, cfg.Retrieval.TopK, *cfg.Retrieval.Threshold)
	} else {
		embedder := retrieval.NewEmbedder(cfg.Embedding.URL, cfg.Embedding.Name)
		gate = retrieval.NewGateWithStore(embedder, store, cfg.Retrieval.TopK, *cfg.Retrieval.Threshold)
	}

	engine := dialogue.NewEngine(gate, dialogue.LLMAdapter{Client: llm.NewClient(cfg.LLM)}, cfg.Dialogue)

	deps := api.Deps{
		Engine:   engine,
		Sessions: session.NewManager(rdb),
		Archive:  archive.NewStore(db.DB),
	}

	r := api.SetupRouter(cfg, rdb, deps)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Starting server on %s%s\n", addr, cfg.Server.Subpath)
	if err := r.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
