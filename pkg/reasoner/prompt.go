package reasoner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/manik3160/NeverDown/pkg/domain"
)

// SystemPrompt is the fixed instruction set given to the model on every
// call, grounded on agent_2_reasoner/prompt_builder.py's SYSTEM_PROMPT.
const SystemPrompt = `You are an expert software engineer analyzing a bug in a codebase.
You are given SANITIZED code where all secrets have been replaced with placeholders like <REDACTED_PASSWORD>.
This is intentional - do NOT try to guess or replace these placeholders.

Your task:
1. Analyze the error and code to identify the root cause
2. Propose a minimal fix as a unified diff patch
3. Explain your reasoning clearly
4. Provide a confidence score (0.0-1.0) for your analysis

IMPORTANT RULES:
- Only propose changes to files mentioned in the analysis
- Keep fixes minimal - change only what's necessary
- Do NOT modify any <REDACTED_*> placeholders
- Include the complete fix, not partial changes
- If you're uncertain, express that in your confidence score

Output your response in this EXACT format:

## Root Cause
<One-line summary of the root cause>

## Explanation
<Detailed explanation of why this bug occurs>

## Confidence
<A decimal number between 0.0 and 1.0>

## Assumptions
<List any assumptions you made, one per line, starting with - >

## Fix
` + "```diff" + `
<Your unified diff patch here>
` + "```" + `

## Risks
<Any potential risks or side effects of this fix>
`

const maxCodeLines = 200

// BuildAnalysisPrompt assembles the user-turn prompt from a Detective
// report and the sanitized repository it points at.
func BuildAnalysisPrompt(repoPath string, report *domain.DetectiveReport) string {
	var b strings.Builder

	b.WriteString("# Error Information\n")
	for i, e := range firstN(report.Errors, 5) {
		fmt.Fprintf(&b, "## Error %d\n", i+1)
		fmt.Fprintf(&b, "**Type**: %s\n", e.Kind)
		fmt.Fprintf(&b, "**Message**: %s\n", e.Message)
		if e.FilePath != "" {
			fmt.Fprintf(&b, "**File**: %s\n", e.FilePath)
		}
		if e.Line != 0 {
			fmt.Fprintf(&b, "**Line**: %d\n", e.Line)
		}
		if e.StackText != "" {
			fmt.Fprintf(&b, "**Stack Trace**:\n```\n%s\n```\n", truncateRunes(e.StackText, 1000))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "**Failure Category**: %s\n\n", report.FailureCategory)

	totalLines := 0
	if len(report.SuspectedFiles) > 0 {
		b.WriteString("# Suspected Files\n\n")
		for _, sf := range firstNFiles(report.SuspectedFiles, 5) {
			if totalLines >= maxCodeLines {
				break
			}
			fmt.Fprintf(&b, "## %s (Confidence: %s)\n", sf.Path, strconv.FormatFloat(sf.Confidence, 'f', 2, 64))
			if len(sf.LineNumbers) > 0 {
				fmt.Fprintf(&b, "Suspected lines: %v\n", sf.LineNumbers)
			}
			if len(sf.Evidence) > 0 {
				b.WriteString("Evidence:\n")
				for _, ev := range firstNStrings(sf.Evidence, 3) {
					fmt.Fprintf(&b, "- %s\n", truncateRunes(ev, 200))
				}
			}
			if code, lines, ok := readFileContent(repoPath, sf); ok {
				totalLines += lines
				fmt.Fprintf(&b, "```\n%s\n```\n", code)
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString("# Project Overview\n\n")
		b.WriteString("No specific files identified from error logs. Here is the project structure:\n\n")
		fmt.Fprintf(&b, "```\n%s\n```\n\n", projectFileListing(repoPath, 50))
	}

	if len(report.RecentChanges) > 0 {
		b.WriteString("# Recent Changes\n\n")
		for _, c := range firstNChanges(report.RecentChanges, 3) {
			id := c.CommitID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Fprintf(&b, "- **%s**: %s\n", id, c.Message)
			fmt.Fprintf(&b, "  Files: %s\n", strings.Join(firstNStrings(c.FilesChanged, 5), ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("# Evidence Summary\n")
	for _, ev := range report.Evidence {
		fmt.Fprintf(&b, "- %s\n", ev)
	}

	b.WriteString("\n---\n")
	b.WriteString("Analyze this information and provide your response in the specified format.\n")
	b.WriteString("IMPORTANT: Only reference files that actually exist in the project structure shown above.\n")

	return b.String()
}

// BuildRetryPrompt appends the failing attempt and the reason it failed
// so the next call can self-correct, rather than retrying blind.
func BuildRetryPrompt(previousPrompt, previousResponse, reason string) string {
	var b strings.Builder
	b.WriteString(previousPrompt)
	b.WriteString("\n\n---\n")
	b.WriteString("Your previous response could not be used:\n\n")
	fmt.Fprintf(&b, "%s\n\n", reason)
	b.WriteString("Previous response:\n```\n")
	b.WriteString(previousResponse)
	b.WriteString("\n```\n\n")
	b.WriteString("Please provide a corrected response in the exact format requested above.\n")
	return b.String()
}

func readFileContent(repoPath string, sf domain.SuspectedFile) (string, int, bool) {
	data, err := os.ReadFile(filepath.Join(repoPath, sf.Path))
	if err != nil {
		return "", 0, false
	}
	lines := strings.Split(string(data), "\n")
	const contextLines = 20
	if len(sf.LineNumbers) == 0 {
		if len(lines) > 50 {
			lines = lines[:50]
		}
		return strings.Join(lines, "\n"), len(lines), true
	}
	center := sf.LineNumbers[0] - 1
	start := center - contextLines
	if start < 0 {
		start = 0
	}
	end := center + contextLines
	if end > len(lines) {
		end = len(lines)
	}
	window := lines[start:end]
	return strings.Join(window, "\n"), len(window), true
}

func projectFileListing(repoPath string, maxFiles int) string {
	skip := []string{"node_modules/", ".git/", "vendor/", "__pycache__/", "venv/", ".venv/", "dist/", "build/"}
	var files []string
	_ = filepath.Walk(repoPath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(repoPath, path)
		for _, s := range skip {
			if strings.Contains(rel, s) {
				return nil
			}
		}
		files = append(files, rel)
		return nil
	})
	if len(files) > maxFiles {
		files = append(files[:maxFiles], fmt.Sprintf("... and %d more files", len(files)-maxFiles))
	}
	return strings.Join(files, "\n")
}

func firstN(xs []domain.ExtractedError, n int) []domain.ExtractedError {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}

func firstNFiles(xs []domain.SuspectedFile, n int) []domain.SuspectedFile {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}

func firstNChanges(xs []domain.RecentChange, n int) []domain.RecentChange {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}

func firstNStrings(xs []string, n int) []string {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
