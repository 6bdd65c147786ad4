// Package docs turns the change log of a run into Markdown documentation.
package docs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PhongLee1210/ai-agents-devop-team/internal/changes"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/llm"
	"github.com/PhongLee1210/ai-agents-devop-team/internal/tools"
)

// EmptyDocument is produced when no change has been recorded.
const EmptyDocument = "# DevGenius Change Documentation\n\nNo changes have been recorded yet."

const systemPrompt = "You are an expert technical documentation writer. Your task is to create clear, " +
	"comprehensive documentation of changes made to a codebase by AI agents."

const defaultDiffBudget = 500

// Source says how a summary was produced.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
	SourceEmpty    Source = "empty"
)

// Summary is the generated documentation and where it was written.
type Summary struct {
	Content string
	Path    string // empty when persisting failed
	Source  Source
}

// RecordSource exposes the change log.
type RecordSource interface {
	Records() []changes.Record
}

// Writer creates new files without overwriting existing ones.
type Writer interface {
	CreateExclusive(path string, content string) error
}

// Config tunes a Summarizer.
type Config struct {
	Model      string
	OutputDir  string
	DiffBudget int    // max diff characters per record in the prompt
	RunID      string // suffix used when the timestamped name is taken
	Revision   string // workspace revision, e.g. "main@abc1234"
}

// Summarizer produces and persists change documentation.
type Summarizer struct {
	cfg     Config
	records RecordSource
	llm     llm.Completer
	out     Writer
	now     func() time.Time
	logger  *zap.Logger
}

// NewSummarizer wires a Summarizer. logger may be nil.
func NewSummarizer(cfg Config, records RecordSource, completer llm.Completer, out Writer, logger *zap.Logger) *Summarizer {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "docs"
	}
	if cfg.DiffBudget <= 0 {
		cfg.DiffBudget = defaultDiffBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		cfg:     cfg,
		records: records,
		llm:     completer,
		out:     out,
		now:     time.Now,
		logger:  logger,
	}
}

// Generate documents every recorded change and writes the result to a new
// file under the output directory. It never fails: an unusable LLM answer
// falls back to a deterministic template and write errors are only logged.
func (s *Summarizer) Generate(ctx context.Context) Summary {
	records := s.records.Records()
	now := s.now()

	var summary Summary
	switch {
	case len(records) == 0:
		summary = Summary{Content: EmptyDocument, Source: SourceEmpty}
	default:
		groups := changes.GroupByAgent(records)
		res := s.llm.Infer(ctx, s.cfg.Model, []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: s.prompt(groups)},
		})
		if res.Failed() || strings.TrimSpace(res.Content) == "" {
			s.logger.Warn("documentation fell back to template",
				zap.String("status", string(res.Status)),
				zap.String("content", truncateRunes(res.Content, 200)),
			)
			summary = Summary{Content: s.fallback(groups, len(records), now), Source: SourceFallback}
		} else {
			summary = Summary{Content: res.Content, Source: SourceLLM}
		}
	}

	summary.Path = s.persist(summary.Content, now)
	return summary
}

func (s *Summarizer) persist(content string, now time.Time) string {
	if s.out == nil {
		return ""
	}
	stamp := now.Format("20060102-150405")
	target := path.Join(s.cfg.OutputDir, "changes-"+stamp+".md")
	err := s.out.CreateExclusive(target, content)
	if errors.Is(err, tools.ErrExists) {
		suffix := s.cfg.RunID
		if suffix == "" {
			suffix = uuid.NewString()
		}
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		target = path.Join(s.cfg.OutputDir, fmt.Sprintf("changes-%s-%s.md", stamp, suffix))
		err = s.out.CreateExclusive(target, content)
	}
	if err != nil {
		s.logger.Error("write documentation", zap.String("path", target), zap.Error(err))
		return ""
	}
	s.logger.Info("documentation written", zap.String("path", target))
	return target
}

func (s *Summarizer) prompt(groups []changes.AgentGroup) string {
	var b strings.Builder
	b.WriteString("I need documentation for the following changes made by AI agents to our codebase:\n\n")
	if s.cfg.Revision != "" {
		fmt.Fprintf(&b, "Repository revision: %s\n\n", s.cfg.Revision)
	}
	for _, g := range groups {
		fmt.Fprintf(&b, "## Changes by %s\n\n", g.Agent)
		for i, rec := range g.Records {
			fmt.Fprintf(&b, "### Change %d: %s\n", i+1, rec.FilePath)
			fmt.Fprintf(&b, "- Timestamp: %s\n", rec.Timestamp.Format(time.RFC3339))
			fmt.Fprintf(&b, "- Description: %s\n", rec.Description)
			if len(rec.Details) > 0 {
				b.WriteString("- Details:\n")
				writeDetails(&b, rec.Details)
			}
			if rec.Diff != "" {
				fmt.Fprintf(&b, "- Diff (truncated if long):\n```diff\n%s\n```\n", truncateRunes(rec.Diff, s.cfg.DiffBudget))
			}
			b.WriteString("\n")
		}
	}
	b.WriteString(`Please create comprehensive documentation from these changes with the following sections:
1. Executive Summary - Brief overview of all changes
2. Detailed Changes - Organized by agent, with technical details
3. Impact Analysis - How these changes affect the system
4. Recommendations - Suggestions for review or future improvements

Format the documentation in Markdown with proper headings, code blocks, and formatting.
`)
	return b.String()
}

func (s *Summarizer) fallback(groups []changes.AgentGroup, total int, now time.Time) string {
	var b strings.Builder
	b.WriteString("# DevGenius Change Documentation\n\n")
	fmt.Fprintf(&b, "Generated on: %s\n", now.Format("2006-01-02 15:04:05"))
	if s.cfg.Revision != "" {
		fmt.Fprintf(&b, "Revision: %s\n", s.cfg.Revision)
	}
	b.WriteString("\n## Summary of Changes\n\n")
	fmt.Fprintf(&b, "Total changes: %d\n", total)
	agents := make([]string, 0, len(groups))
	for _, g := range groups {
		agents = append(agents, g.Agent)
	}
	fmt.Fprintf(&b, "Agents involved: %s\n\n", strings.Join(agents, ", "))

	for _, g := range groups {
		fmt.Fprintf(&b, "## Changes by %s\n\n", g.Agent)
		for i, rec := range g.Records {
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, rec.FilePath)
			fmt.Fprintf(&b, "- **Timestamp**: %s\n", rec.Timestamp.Format(time.RFC3339))
			fmt.Fprintf(&b, "- **Description**: %s\n", rec.Description)
			if len(rec.Details) > 0 {
				b.WriteString("- **Details**:\n")
				writeDetails(&b, rec.Details)
			}
			if rec.Diff != "" {
				fmt.Fprintf(&b, "\n```diff\n%s\n```\n", strings.TrimRight(rec.Diff, "\n"))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// writeDetails lists details sorted by key so output is reproducible.
func writeDetails(b *strings.Builder, details map[string]interface{}) {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "  - %s: %v\n", k, details[k])
	}
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
