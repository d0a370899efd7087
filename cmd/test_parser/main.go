package main

import (
	"fmt"
	"os"

	"mb-mentor/internal/project"
)

// Debug harness: parse a MusicBlocks export file and print what the mentor
// would see, without going through the server or an LLM.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/test_parser/main.go <project-file>")
		fmt.Println("Example: go run cmd/test_parser/main.go testdata/melody.json")
		os.Exit(1)
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(1)
	}

	input := string(raw)
	fmt.Printf("Has project marker: %v\n", project.HasMarker(input))

	proj, err := project.Parse(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Parse error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n=== Parsed %d blocks ===\n", len(proj.Blocks))
	fmt.Print(proj.Outline())

	fmt.Println("\n=== Algorithm prompt ===")
	fmt.Println(project.AlgorithmPrompt(proj))
}
