package ingest

import "strings"

// ChunkText splits documentation text into pieces of roughly targetSize
// characters, breaking at natural boundaries so no chunk starts or ends
// mid-sentence when the text allows it.
func ChunkText(text string, targetSize int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if targetSize <= 0 {
		targetSize = 1000
	}

	var chunks []string
	for len(text) > 0 {
		size := targetSize
		if len(text) <= size {
			size = len(text)
		}
		breakPoint := findBreakPoint(text, size)
		if chunk := strings.TrimSpace(text[:breakPoint]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = text[breakPoint:]
	}
	return chunks
}

// findBreakPoint finds the best place to break text near targetSize, looking
// back up to 200 chars for a boundary.
func findBreakPoint(text string, targetSize int) int {
	if len(text) <= targetSize {
		return len(text)
	}

	searchStart := targetSize - 200
	if searchStart < 0 {
		searchStart = 0
	}
	searchText := text[searchStart:targetSize]

	if idx := strings.LastIndex(searchText, "\n\n"); idx != -1 {
		return searchStart + idx + 2
	}
	if idx := strings.LastIndex(searchText, "\n"); idx != -1 {
		return searchStart + idx + 1
	}
	if idx := strings.LastIndex(searchText, ". "); idx != -1 {
		return searchStart + idx + 2
	}
	if idx := strings.LastIndex(searchText, " "); idx != -1 {
		return searchStart + idx + 1
	}
	return targetSize
}
