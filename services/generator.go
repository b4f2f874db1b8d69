package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/addislearn/quiz-backend/logger"
	"github.com/addislearn/quiz-backend/models"
)

// ItemDraft is a generated item before it is committed to storage.
type ItemDraft struct {
	Subject      string
	Question     string
	Options      []string
	CorrectIndex int
	SourcePageID *uuid.UUID
}

// GeneratorConfig holds the termination policy. The defaults reproduce the
// observed behavior but all four are tunable.
type GeneratorConfig struct {
	BatchSize  int // grounding pages per model call
	MaxBatches int // hard cap on model calls per generation
	MaxItems   int // stop collecting once this many items exist
	MinYield   int // below min(MinYield, requested) the generation fails
	// ContextBudget caps the grounding text per batch, in characters.
	ContextBudget int
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		BatchSize:     4,
		MaxBatches:    3,
		MaxItems:      10,
		MinYield:      3,
		ContextBudget: 7200,
	}
}

// Generator produces graded multiple-choice items from grounding pages by
// driving a generative model in sequential batches.
type Generator struct {
	client ModelClient
	cfg    GeneratorConfig
	log    *logger.Logger
}

func NewGenerator(client ModelClient, cfg GeneratorConfig, log *logger.Logger) *Generator {
	return &Generator{client: client, cfg: cfg, log: log}
}

type GenerateParams struct {
	Pages        []models.TextbookPage
	Subject      string
	Grade        int
	Difficulty   models.Difficulty
	Count        int
	LanguageHint string
}

// Generate runs batched generation until enough items are collected or the
// batch cap is hit. A model call failure aborts immediately; the caller is
// responsible for discarding the in-progress session.
func (g *Generator) Generate(ctx context.Context, p GenerateParams) ([]ItemDraft, error) {
	pages := FilterTextPages(p.Pages)
	if len(pages) == 0 {
		return nil, ErrNoGroundingText
	}

	// Page-number -> id map for source attribution across all batches.
	pageByNumber := make(map[int]uuid.UUID, len(pages))
	for _, pg := range pages {
		pageByNumber[pg.PageNumber] = pg.ID
	}
	firstPageID := pages[0].ID

	target := p.Count
	if target > g.cfg.MaxItems {
		target = g.cfg.MaxItems
	}

	var collected []ItemDraft
	seen := make(map[string]struct{})

	batches := batchPages(pages, g.cfg.BatchSize)
	for i, batch := range batches {
		if i >= g.cfg.MaxBatches || len(collected) >= target {
			break
		}

		ask := p.Count - len(collected)
		if ask < 3 {
			ask = 3
		}

		raw, err := g.client.Complete(ctx, g.systemPrompt(p, ask), g.userPrompt(p, batch))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}

		items, err := extractModelItems(raw)
		if err != nil {
			g.log.Warn("unparseable model output, skipping batch",
				"batch", i+1, "error", err)
			continue
		}

		for _, it := range items {
			draft, ok := g.validate(it, p.Subject, pageByNumber, firstPageID)
			if !ok {
				continue
			}
			if _, dup := seen[draft.Question]; dup {
				continue
			}
			seen[draft.Question] = struct{}{}
			collected = append(collected, draft)
		}

		g.log.Debug("generation batch finished",
			"batch", i+1, "returned", len(items), "collected", len(collected))
	}

	minYield := g.cfg.MinYield
	if p.Count < minYield {
		minYield = p.Count
	}
	if len(collected) < minYield {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientYield, len(collected), minYield)
	}

	if len(collected) > p.Count {
		collected = collected[:p.Count]
	}
	return collected, nil
}

// modelItem is the shape the prompt asks the model to return.
type modelItem struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_index"`
	SourcePage   int      `json:"source_page"`
}

type modelPayload struct {
	Items []modelItem `json:"items"`
}

// extractModelItems pulls the structured payload out of the raw model
// output, tolerating code fences and surrounding prose.
func extractModelItems(raw string) ([]modelItem, error) {
	txt := strings.TrimSpace(raw)
	txt = strings.ReplaceAll(txt, "```json", "")
	txt = strings.ReplaceAll(txt, "```", "")
	txt = strings.TrimSpace(txt)

	var payload modelPayload
	if err := json.Unmarshal([]byte(txt), &payload); err == nil {
		return payload.Items, nil
	}

	start := strings.Index(txt, "{")
	end := strings.LastIndex(txt, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	if err := json.Unmarshal([]byte(txt[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	return payload.Items, nil
}

// isLabelOnly spots degenerate options like "A" or "C." that some models
// emit instead of real answer text.
func isLabelOnly(s string) bool {
	t := strings.TrimSpace(s)
	if len(t) == 0 {
		return true
	}
	t = strings.TrimSuffix(t, ".")
	return len(t) == 1 && t[0] >= 'A' && t[0] <= 'D'
}

func (g *Generator) validate(it modelItem, subject string, pageByNumber map[int]uuid.UUID, fallback uuid.UUID) (ItemDraft, bool) {
	question := strings.TrimSpace(it.Question)
	if question == "" || len(it.Options) < 4 || it.CorrectIndex == nil {
		return ItemDraft{}, false
	}
	opts := make([]string, len(it.Options))
	for i, o := range it.Options {
		o = strings.TrimSpace(o)
		if isLabelOnly(o) {
			return ItemDraft{}, false
		}
		opts[i] = o
	}
	ci := *it.CorrectIndex
	if ci < 0 || ci >= len(opts) {
		return ItemDraft{}, false
	}

	sourceID := fallback
	if id, ok := pageByNumber[it.SourcePage]; ok {
		sourceID = id
	}
	src := sourceID
	return ItemDraft{
		Subject:      subject,
		Question:     question,
		Options:      opts,
		CorrectIndex: ci,
		SourcePageID: &src,
	}, true
}

func batchPages(pages []models.TextbookPage, size int) [][]models.TextbookPage {
	if size < 1 {
		size = 1
	}
	var out [][]models.TextbookPage
	for start := 0; start < len(pages); start += size {
		end := start + size
		if end > len(pages) {
			end = len(pages)
		}
		out = append(out, pages[start:end])
	}
	return out
}

func (g *Generator) systemPrompt(p GenerateParams, ask int) string {
	var langRule string
	switch p.LanguageHint {
	case LangHintAmharic:
		langRule = "Respond strictly in Amharic (Ge'ez/Ethiopic script). Do not transliterate or translate."
	default:
		langRule = "Detect the excerpt language and respond strictly in that language."
	}

	return strings.Join([]string{
		fmt.Sprintf("You are a professional %s teacher for grade %d.", p.Subject, p.Grade),
		fmt.Sprintf("Write %d multiple-choice questions grounded ONLY in the excerpt.", ask),
		fmt.Sprintf("Level: %s.", p.Difficulty),
		langRule,
		`Return ONLY a JSON object of this exact shape:
{
  "items": [
    {
      "question": "...",
      "options": ["...", "...", "...", "..."],
      "correct_index": 0,
      "source_page": <page number from the excerpt>
    }
  ]
}`,
		"Rules:",
		"- Exactly 4 options.",
		"- Each option is 1-8 words of meaningful content (no single letters, no 'A/B/C/D', no numbering labels).",
		"- Do NOT wrap in code fences.",
		"- No explanations or analysis outside the JSON.",
	}, "\n")
}

func (g *Generator) userPrompt(p GenerateParams, batch []models.TextbookPage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TEXTBOOK EXCERPT (Grade %d, Subject: %s)\n", p.Grade, p.Subject)
	b.WriteString("-----------------------------------------------\n")
	for _, pg := range batch {
		fmt.Fprintf(&b, "# Page %d\n%s\n\n", pg.PageNumber, strings.TrimSpace(pg.TextContent))
	}
	ctxText := b.String()
	if g.cfg.ContextBudget > 0 && len(ctxText) > g.cfg.ContextBudget {
		// Back off to a rune boundary so multi-byte script (Ethiopic is
		// three bytes per rune) is never cut mid-rune.
		cut := g.cfg.ContextBudget
		for cut > 0 && !utf8.RuneStart(ctxText[cut]) {
			cut--
		}
		ctxText = ctxText[:cut]
	}
	return ctxText
}
