package project

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Marker is the structural header a learner pastes ahead of an exported
// MusicBlocks project. Input starting with it is routed to project analysis
// instead of a normal reply turn.
const Marker = "Start of Project"

// Block is one node of a MusicBlocks project flowchart.
type Block struct {
	ID          int
	Name        string
	Connections []int
}

// Project is the structured representation of a parsed MusicBlocks export.
type Project struct {
	Blocks []Block
}

// HasMarker reports whether the input carries the project header.
func HasMarker(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), Marker)
}

// Parse decodes a MusicBlocks export. The raw format is a JSON array of
// block tuples: [id, name-or-[name, params], x, y, [connections...]]. Any
// leading marker line is stripped first.
func Parse(raw string) (*Project, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, Marker) {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, Marker))
	}
	if raw == "" {
		return nil, fmt.Errorf("empty project body")
	}

	var tuples [][]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &tuples); err != nil {
		return nil, fmt.Errorf("invalid project format: %w", err)
	}
	if len(tuples) == 0 {
		return nil, fmt.Errorf("project contains no blocks")
	}

	p := &Project{Blocks: make([]Block, 0, len(tuples))}
	for i, tup := range tuples {
		if len(tup) < 5 {
			return nil, fmt.Errorf("block %d: expected 5 fields, got %d", i, len(tup))
		}
		var b Block
		if err := json.Unmarshal(tup[0], &b.ID); err != nil {
			return nil, fmt.Errorf("block %d: bad id: %w", i, err)
		}
		name, err := parseBlockName(tup[1])
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		b.Name = name

		var conns []*int
		if err := json.Unmarshal(tup[4], &conns); err != nil {
			return nil, fmt.Errorf("block %d: bad connections: %w", i, err)
		}
		for _, c := range conns {
			if c != nil {
				b.Connections = append(b.Connections, *c)
			}
		}
		p.Blocks = append(p.Blocks, b)
	}
	return p, nil
}

// parseBlockName handles both name forms: a bare string, or a
// [name, params] pair for value-carrying blocks.
func parseBlockName(raw json.RawMessage) (string, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name, nil
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) == 0 {
		return "", fmt.Errorf("bad block name")
	}
	if err := json.Unmarshal(pair[0], &name); err != nil {
		return "", fmt.Errorf("bad block name")
	}
	return name, nil
}

// Outline renders the block structure as indented text for the LLM prompt.
func (p *Project) Outline() string {
	var b strings.Builder
	for _, blk := range p.Blocks {
		fmt.Fprintf(&b, "block %d: %s", blk.ID, blk.Name)
		if len(blk.Connections) > 0 {
			fmt.Fprintf(&b, " -> connects to %v", blk.Connections)
		}
		b.WriteString("\n")
	}
	return b.String()
}
