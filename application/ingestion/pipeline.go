package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"recipegraph/application/commands"
	"recipegraph/application/ports"
	"recipegraph/domain/config"
	"recipegraph/domain/core/entities"
	"recipegraph/domain/core/valueobjects"
	pkgerrors "recipegraph/pkg/errors"
)

// RecipeRecord is one flat recipe as delivered by a source.
type RecipeRecord struct {
	ID            string   `json:"id,omitempty" dynamodbav:"id"`
	Title         string   `json:"title" dynamodbav:"title"`
	Description   string   `json:"description,omitempty" dynamodbav:"description"`
	URL           string   `json:"url,omitempty" dynamodbav:"url"`
	Category      string   `json:"category,omitempty" dynamodbav:"category"`
	Cuisine       string   `json:"cuisine,omitempty" dynamodbav:"cuisine"`
	Author        string   `json:"author,omitempty" dynamodbav:"author"`
	CookingMethod string   `json:"cookingMethod,omitempty" dynamodbav:"cookingMethod"`
	Servings      string   `json:"servings,omitempty" dynamodbav:"servings"`
	PrepTime      string   `json:"prep_time,omitempty" dynamodbav:"prep_time"`
	CookTime      string   `json:"cook_time,omitempty" dynamodbav:"cook_time"`
	TotalTime     string   `json:"total_time,omitempty" dynamodbav:"total_time"`
	ImageURL      string   `json:"image_url,omitempty" dynamodbav:"image_url"`
	Ingredients   []string `json:"ingredients" dynamodbav:"ingredients"`
	Instructions  []string `json:"instructions,omitempty" dynamodbav:"instructions"`
	Tags          []string `json:"tags,omitempty" dynamodbav:"tags"`
}

// Key is the recipe's stable external key: its source id, or a slug of
// the title when the source has none.
func (r RecipeRecord) Key() string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return id
	}
	return Slug(r.Title)
}

// RecipeSource delivers records one page at a time. NextPage returns
// io.EOF, possibly alongside a final page, once the source is drained.
type RecipeSource interface {
	NextPage(ctx context.Context) ([]RecipeRecord, error)
}

// NodeEnsurer is the node-side write surface the pipeline needs.
type NodeEnsurer interface {
	EnsureNode(ctx context.Context, cmd commands.CreateNodeCommand) (*entities.Node, bool, error)
}

// EdgeEnsurer is the edge-side write surface the pipeline needs.
type EdgeEnsurer interface {
	EnsureEdge(ctx context.Context, cmd commands.CreateEdgeCommand) (*entities.Edge, bool, error)
}

// Report summarizes one pipeline run.
type Report struct {
	Batches            int           `json:"batches"`
	Records            int           `json:"records"`
	Succeeded          int           `json:"succeeded"`
	Failed             int           `json:"failed"`
	NodesCreated       int           `json:"nodesCreated"`
	EdgesCreated       int           `json:"edgesCreated"`
	IngredientsSkipped int           `json:"ingredientsSkipped"`
	Duration           time.Duration `json:"duration"`
}

// Record outcomes reported to metrics.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// Pipeline upserts recipes, ingredients, tags and cooking methods and
// links them. Every write is an ensure, so replaying a source is a no-op.
type Pipeline struct {
	nodes   NodeEnsurer
	edges   EdgeEnsurer
	metrics ports.Metrics
	config  *config.DomainConfig
	logger  *zap.Logger
	limiter *rate.Limiter

	mu     sync.Mutex
	report Report
}

// NewPipeline creates an ingestion pipeline. Batches are spaced by
// IngestBatchDelay and records within a batch run IngestConcurrency wide.
func NewPipeline(nodes NodeEnsurer, edges EdgeEnsurer, metrics ports.Metrics, cfg *config.DomainConfig, logger *zap.Logger) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	every := rate.Inf
	if cfg.IngestBatchDelay > 0 {
		every = rate.Every(cfg.IngestBatchDelay)
	}
	return &Pipeline{
		nodes:   nodes,
		edges:   edges,
		metrics: metrics,
		config:  cfg,
		logger:  logger,
		limiter: rate.NewLimiter(every, 1),
	}
}

// Run drains the source. Cancelling ctx stops fetching new pages; the
// batch already in flight runs to completion. Per-record failures are
// counted, never returned. The returned error is a source failure or the
// cancellation cause.
func (p *Pipeline) Run(ctx context.Context, source RecipeSource) (Report, error) {
	start := time.Now()
	p.mu.Lock()
	p.report = Report{}
	p.mu.Unlock()

	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return p.snapshot(start), fmt.Errorf("ingestion stopped: %w", err)
		}

		records, err := source.NextPage(ctx)
		done := errors.Is(err, io.EOF)
		if err != nil && !done {
			if ctx.Err() != nil {
				return p.snapshot(start), fmt.Errorf("ingestion stopped: %w", ctx.Err())
			}
			return p.snapshot(start), fmt.Errorf("failed to fetch recipe page: %w", err)
		}

		if len(records) > 0 {
			p.runBatch(context.WithoutCancel(ctx), records)
		}
		if done {
			report := p.snapshot(start)
			p.logger.Info("Ingestion finished",
				zap.Int("batches", report.Batches),
				zap.Int("records", report.Records),
				zap.Int("failed", report.Failed),
				zap.Int("nodes_created", report.NodesCreated),
				zap.Int("edges_created", report.EdgesCreated),
			)
			return report, nil
		}
	}
}

func (p *Pipeline) runBatch(ctx context.Context, records []RecipeRecord) {
	p.mu.Lock()
	p.report.Batches++
	batch := p.report.Batches
	p.mu.Unlock()

	p.logger.Debug("Ingesting batch", zap.Int("batch", batch), zap.Int("records", len(records)))

	g := new(errgroup.Group)
	g.SetLimit(max(p.config.IngestConcurrency, 1))
	for _, rec := range records {
		g.Go(func() error {
			nodes, edges, skipped, err := p.IngestRecord(ctx, rec)
			p.record(nodes, edges, skipped, err)
			if err != nil {
				p.logger.Warn("Failed to ingest recipe",
					zap.String("key", rec.Key()),
					zap.String("title", rec.Title),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// IngestRecord writes one recipe and its neighbourhood. It returns how
// many nodes and edges were newly created and how many ingredient lines
// yielded no usable name.
func (p *Pipeline) IngestRecord(ctx context.Context, rec RecipeRecord) (nodesCreated, edgesCreated, skipped int, err error) {
	key := rec.Key()
	if key == "" || strings.TrimSpace(rec.Title) == "" {
		return 0, 0, 0, pkgerrors.NewValidationError("recipe record needs a title")
	}

	recipe, created, err := p.nodes.EnsureNode(ctx, commands.CreateNodeCommand{
		Type:       string(valueobjects.NodeTypeRecipe),
		Key:        key,
		Properties: recipeProperties(rec),
	})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("recipe %q: %w", key, err)
	}
	nodesCreated += btoi(created)

	link := func(nodeType valueobjects.NodeType, nodeKey, name string, edgeType valueobjects.EdgeType, props map[string]any) error {
		target, created, err := p.nodes.EnsureNode(ctx, commands.CreateNodeCommand{
			Type:       string(nodeType),
			Key:        nodeKey,
			Properties: map[string]any{"name": name},
		})
		if err != nil {
			return fmt.Errorf("%s %q: %w", nodeType, nodeKey, err)
		}
		nodesCreated += btoi(created)

		_, created, err = p.edges.EnsureEdge(ctx, commands.CreateEdgeCommand{
			FromID:     recipe.ID().String(),
			ToID:       target.ID().String(),
			Type:       string(edgeType),
			Properties: props,
		})
		if err != nil {
			return fmt.Errorf("%s edge to %q: %w", edgeType, nodeKey, err)
		}
		edgesCreated += btoi(created)
		return nil
	}

	seen := make(map[string]bool)
	for _, line := range rec.Ingredients {
		ing := ParseIngredient(line)
		if ing.Key == "" {
			skipped++
			continue
		}
		if seen[ing.Key] {
			continue
		}
		seen[ing.Key] = true
		if err := link(valueobjects.NodeTypeIngredient, ing.Key, ing.Key, valueobjects.EdgeTypeHasIngredient, ingredientEdgeProperties(ing)); err != nil {
			return nodesCreated, edgesCreated, skipped, err
		}
	}

	for _, tag := range recordTags(rec) {
		if err := link(valueobjects.NodeTypeTag, tag, tag, valueobjects.EdgeTypeHasTag, nil); err != nil {
			return nodesCreated, edgesCreated, skipped, err
		}
	}

	if method := CanonicalKey(rec.CookingMethod); method != "" {
		if err := link(valueobjects.NodeTypeCookingMethod, method, method, valueobjects.EdgeTypeUsesMethod, nil); err != nil {
			return nodesCreated, edgesCreated, skipped, err
		}
	}

	return nodesCreated, edgesCreated, skipped, nil
}

func (p *Pipeline) record(nodes, edges, skipped int, err error) {
	p.mu.Lock()
	p.report.Records++
	p.report.NodesCreated += nodes
	p.report.EdgesCreated += edges
	p.report.IngredientsSkipped += skipped
	outcome := OutcomeSucceeded
	if err != nil {
		p.report.Failed++
		outcome = OutcomeFailed
	} else {
		p.report.Succeeded++
	}
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.IngestedRecord(outcome)
	}
}

func (p *Pipeline) snapshot(start time.Time) Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report.Duration = time.Since(start)
	return p.report
}

func recipeProperties(rec RecipeRecord) map[string]any {
	props := map[string]any{"name": strings.TrimSpace(rec.Title)}
	optional := map[string]string{
		"description":   rec.Description,
		"url":           rec.URL,
		"category":      rec.Category,
		"cuisine":       rec.Cuisine,
		"author":        rec.Author,
		"cookingMethod": rec.CookingMethod,
		"servings":      rec.Servings,
		"prepTime":      rec.PrepTime,
		"cookTime":      rec.CookTime,
		"totalTime":     rec.TotalTime,
		"imageUrl":      rec.ImageURL,
	}
	for k, v := range optional {
		if v = strings.TrimSpace(v); v != "" {
			props[k] = v
		}
	}
	if rec.ID != "" {
		props["source"] = rec.ID
	}
	if len(rec.Ingredients) > 0 {
		props["ingredients"] = rec.Ingredients
	}
	if len(rec.Instructions) > 0 {
		props["instructions"] = rec.Instructions
	}
	if tags := recordTags(rec); len(tags) > 0 {
		props["tags"] = tags
	}
	return props
}

func ingredientEdgeProperties(ing Ingredient) map[string]any {
	props := map[string]any{"original": ing.Original}
	if ing.Quantity != "" {
		props["quantity"] = ing.Quantity
	}
	if ing.Unit != "" {
		props["unit"] = ing.Unit
	}
	if ing.Notes != "" {
		props["notes"] = ing.Notes
	}
	return props
}

// recordTags returns the canonical tag keys of a record. Category and
// cuisine count as tags.
func recordTags(rec RecipeRecord) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, raw := range append([]string{rec.Category, rec.Cuisine}, rec.Tags...) {
		k := CanonicalKey(raw)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		tags = append(tags, k)
	}
	return tags
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
