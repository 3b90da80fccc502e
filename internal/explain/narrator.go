package explain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/lhiwi/acis-insurance-project/internal/llm"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/rs/zerolog"
)

const DefaultNarratorPrompt = `You are reviewing an automated motor insurance risk assessment.

Portfolio: {{.Summary.Policies}} policies, {{.Summary.HighRiskPolicies}} flagged high-risk (score above 0.7).
{{.Summary.PremiumLabel}}: {{printf "%.2f" .Summary.PremiumValue}}
{{- if .Explanation}}

Top risk contributors for policy #{{.Explanation.RecordIndex}} (log-odds impact, baseline {{printf "%.3f" .Explanation.ExpectedValue}}):
{{- range .Explanation.Top}}
- {{.Feature}}: {{printf "%+.3f" .Impact}}
{{- end}}
{{- end}}

Write a short note (at most 4 sentences) for an underwriter describing the main risk drivers and whether manual review is warranted. Plain text only.`

const narratorSystem = "You are an experienced insurance underwriter. Be factual and concise."

type NarratorConfig struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	Retry       bool
}

type promptData struct {
	Summary     models.Summary
	Explanation *models.Explanation
}

// Narrator turns a run summary and explanation into an underwriter note.
type Narrator struct {
	client llm.Client
	tmpl   *template.Template
	cfg    NarratorConfig
	logger *zerolog.Logger
}

func NewNarrator(client llm.Client, cfg NarratorConfig, logger *zerolog.Logger) (*Narrator, error) {
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultNarratorPrompt
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 300
	}

	tmpl, err := template.New("narrator").Parse(cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse narrator prompt: %w", err)
	}

	return &Narrator{
		client: client,
		tmpl:   tmpl,
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (n *Narrator) Narrate(ctx context.Context, summary models.Summary, explanation *models.Explanation) (string, error) {
	now := time.Now()

	var buf bytes.Buffer
	if err := n.tmpl.Execute(&buf, promptData{Summary: summary, Explanation: explanation}); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	request := llm.Request{
		System:      narratorSystem,
		Prompt:      buf.String(),
		MaxTokens:   n.cfg.MaxTokens,
		Temperature: n.cfg.Temperature,
	}

	var (
		resp *llm.Response
		err  error
	)
	if n.cfg.Retry {
		resp, err = n.client.InvokeModelWithRetry(ctx, request)
	} else {
		resp, err = n.client.InvokeModel(ctx, request)
	}
	if err != nil {
		return "", fmt.Errorf("narrator call failed: %w", err)
	}

	note := strings.TrimSpace(resp.Content)
	if note == "" {
		return "", errors.New("narrator returned an empty note")
	}

	n.logger.Info().
		Int("inputTokens", resp.InputTokens).
		Int("outputTokens", resp.OutputTokens).
		Dur("duration", time.Since(now)).
		Msg("underwriter note generated")

	return note, nil
}
