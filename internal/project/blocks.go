package project

import (
	"fmt"
	"sort"
	"strings"
)

// blockInfo describes the MusicBlocks blocks mentors most often see in
// learner projects. Unknown block names are simply omitted from the lookup;
// the LLM still sees them in the outline.
var blockInfo = map[string]string{
	"start":            "entry point; everything connected below runs when the project starts",
	"action":           "defines a named, reusable stack of blocks",
	"nameddo":          "runs a named action",
	"repeat":           "runs the enclosed blocks a fixed number of times",
	"forever":          "runs the enclosed blocks until the project stops",
	"if":               "runs the enclosed blocks only when the condition holds",
	"newnote":          "plays a note for the given note value",
	"pitch":            "sets the pitch (solfege or letter name plus octave) inside a note",
	"playdrum":         "plays a drum sound",
	"rest2":            "a silent beat",
	"divide":           "divides two values, often used to split a note value",
	"number":           "a numeric literal",
	"solfege":          "a solfege pitch name literal",
	"drumname":         "a drum sound name literal",
	"setbpm":           "sets the tempo in beats per minute",
	"meter":            "sets the time signature",
	"setmasterbpm":     "sets the master tempo for every voice",
	"settransposition": "shifts every enclosed pitch by the given interval",
	"matrix":           "the phrase maker grid for composing note patterns",
	"pitchdrummatrix":  "the pitch-drum matrix for mapping pitches to drum sounds",
	"rhythmruler2":     "the rhythm maker for subdividing note values",
	"tuplet4":          "fits the enclosed notes into a custom span of time",
	"setsynth":         "selects the instrument voice",
	"vspace":           "vertical spacer, no musical effect",
	"hidden":           "internal connector block, no musical effect",
}

// LookupBlockInfo returns a description of every known block the project
// uses, one per line, for grounding the algorithm prompt.
func LookupBlockInfo(p *Project) string {
	seen := make(map[string]bool)
	for _, b := range p.Blocks {
		seen[strings.ToLower(b.Name)] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		if _, ok := blockInfo[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out strings.Builder
	for _, name := range names {
		fmt.Fprintf(&out, "%s: %s\n", name, blockInfo[name])
	}
	return out.String()
}

// AlgorithmPrompt builds the completion request that turns a parsed project
// into a plain-language algorithm description.
func AlgorithmPrompt(p *Project) string {
	var b strings.Builder
	b.WriteString("1. Provide a simple step-by-step algorithm for this code block structure.\n")
	b.WriteString("2. What could be the use of this code? Explain its purpose and functionality. (Under 50 words)\n")
	b.WriteString("3. Don't write in markdown.\n\n")
	b.WriteString("Block structure:\n")
	b.WriteString(p.Outline())
	if info := LookupBlockInfo(p); info != "" {
		b.WriteString("\nBlock reference:\n")
		b.WriteString(info)
	}
	return b.String()
}
