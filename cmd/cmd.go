package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/legallens/legallens/internal/models"
	"github.com/legallens/legallens/server"
)

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// runConsole drives the interactive loop. A line naming an existing file is
// ingested and analyzed; anything else is a question about the last document.
func runConsole(pipeline server.Ingestor, answerer server.Answerer, assistant server.Assistant) error {
	color.Cyan("\nLegal Lens (type a file path to analyze a document, 'exit' to quit)")

	ctx := context.Background()
	if law, err := assistant.LawOfTheDay(ctx); err == nil {
		color.Yellow("\nLaw of the day: %s\n", law)
	}

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	var currentDoc string
	var history []models.ChatTurn

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.ToLower(line) == "exit" {
			break
		}

		if info, err := os.Stat(line); err == nil && !info.IsDir() {
			name, err := ingestFile(ctx, pipeline, line)
			if err != nil {
				color.Red("Failed to analyze document: %v\n", err)
				continue
			}
			currentDoc = name
			history = nil
			continue
		}

		// With no document loaded, fall back to general legal small talk
		if currentDoc == "" {
			spinner := getSpinner(" Thinking...")
			reply, err := assistant.Consult(ctx, line)
			spinner.Finish()
			fmt.Print("\r")

			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}
			assistantPrompt("\nAssistant: %s\n", reply)
			continue
		}

		spinner := getSpinner(" Searching document...")
		answer, err := answerer.Answer(ctx, line, history, currentDoc)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		assistantPrompt("\nAssistant: %s\n", answer.Answer)
		if len(answer.UniquePages) > 0 {
			pages := make([]string, 0, len(answer.UniquePages))
			for _, p := range answer.UniquePages {
				pages = append(pages, fmt.Sprintf("%d", p))
			}
			color.Blue("Sources: page(s) %s\n", strings.Join(pages, ", "))
		}

		history = append(history,
			models.ChatTurn{Role: "user", Text: line},
			models.ChatTurn{Role: "assistant", Text: answer.Answer, Sources: answer.Sources},
		)
	}

	return nil
}

func ingestFile(ctx context.Context, pipeline server.Ingestor, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	name := filepath.Base(path)
	color.Blue("\nAnalyzing %s...\n", name)

	spinner := getSpinner(" Chunking, embedding and analyzing...")
	result, err := pipeline.Ingest(ctx, name, data)
	spinner.Finish()
	fmt.Print("\r")

	if err != nil {
		return "", err
	}

	color.Green("✓ Indexed %d chunks\n", result.ChunkCount)
	if len(result.FailedBatches) > 0 {
		color.Yellow("! %d analysis batch(es) failed and were skipped\n", len(result.FailedBatches))
	}

	color.Cyan("\nSummary:\n%s\n", result.Summary)

	if len(result.KeyClauses) > 0 {
		color.Cyan("\nKey clauses:")
		for _, clause := range result.KeyClauses {
			fmt.Printf("  - %s: %s\n", clause.Title, clause.Explanation)
		}
	}

	if len(result.JargonBuster) > 0 {
		color.Cyan("\nJargon buster:")
		for _, entry := range result.JargonBuster {
			fmt.Printf("  - %s: %s\n", entry.Term, entry.Definition)
		}
	}

	return name, nil
}
