package ingestion

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipegraph/application/commands"
	"recipegraph/application/queries"
	"recipegraph/application/services"
	"recipegraph/domain/config"
	"recipegraph/domain/core/entities"
	"recipegraph/infrastructure/persistence/sqlite"
)

type pageSource struct {
	mu    sync.Mutex
	pages [][]RecipeRecord
	err   error
	calls int
}

func (s *pageSource) NextPage(ctx context.Context) ([]RecipeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.pages) == 0 {
		return nil, io.EOF
	}
	page := s.pages[0]
	s.pages = s.pages[1:]
	return page, nil
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (m *countingMetrics) ObserveOperation(string, time.Duration, error) {}
func (m *countingMetrics) TraversalTruncated(string)                     {}
func (m *countingMetrics) IngestedRecord(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
}

type graph struct {
	nodes     *services.NodeService
	edges     *services.EdgeService
	traversal *services.TraversalService
	cfg       *config.DomainConfig
}

func newGraph(t *testing.T) *graph {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "graph.db"), time.Second, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.DevelopmentDomainConfig()
	logger := zap.NewNop()
	return &graph{
		nodes:     services.NewNodeService(store, nil, nil, cfg, logger),
		edges:     services.NewEdgeService(store, nil, nil, cfg, logger),
		traversal: services.NewTraversalService(store, nil, cfg, logger),
		cfg:       cfg,
	}
}

var tomatoSoup = RecipeRecord{
	ID:            "r-1",
	Title:         "Tomato Soup",
	Category:      "Soup",
	CookingMethod: "Simmering",
	Ingredients:   []string{"2 cups tomato, chopped", "1 Tbsp olive oil", "2 cups Tomato"},
	Tags:          []string{"Vegetarian", "soup"},
}

func TestPipelineBuildsRecipeGraph(t *testing.T) {
	g := newGraph(t)
	metrics := &countingMetrics{}
	p := NewPipeline(g.nodes, g.edges, metrics, g.cfg, zap.NewNop())

	src := &pageSource{pages: [][]RecipeRecord{{tomatoSoup, {Title: "  "}}}}
	report, err := p.Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Batches)
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	// recipe, tomato, olive oil, soup, vegetarian, simmering
	assert.Equal(t, 6, report.NodesCreated)
	assert.Equal(t, 5, report.EdgesCreated)
	assert.Equal(t, map[string]int{OutcomeSucceeded: 1, OutcomeFailed: 1}, metrics.outcomes)

	recipe, err := g.nodes.FindByKey(context.Background(), "RECIPE", "r-1")
	require.NoError(t, err)
	props, err := recipe.AsRecipe()
	require.NoError(t, err)
	assert.Equal(t, "Tomato Soup", props.Name)
	assert.Equal(t, []string{"soup", "vegetarian"}, props.Tags)

	list, err := g.edges.List(context.Background(), queries.ListEdgesQuery{FromID: recipe.ID().String(), Type: "HAS_INGREDIENT"})
	require.NoError(t, err)
	edges := list.Items
	require.Len(t, edges, 2)
	assert.Equal(t, "2 cups tomato, chopped", edges[0].Properties["original"])
	assert.Equal(t, "2", edges[0].Properties["quantity"])
	assert.Equal(t, "cup", edges[0].Properties["unit"])
	assert.Equal(t, "chopped", edges[0].Properties["notes"])
}

func TestPipelineReplayCreatesNothing(t *testing.T) {
	g := newGraph(t)
	p := NewPipeline(g.nodes, g.edges, nil, g.cfg, zap.NewNop())

	_, err := p.Run(context.Background(), &pageSource{pages: [][]RecipeRecord{{tomatoSoup}}})
	require.NoError(t, err)

	report, err := p.Run(context.Background(), &pageSource{pages: [][]RecipeRecord{{tomatoSoup}}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Zero(t, report.NodesCreated)
	assert.Zero(t, report.EdgesCreated)

	recipe, err := g.nodes.FindByKey(context.Background(), "RECIPE", "r-1")
	require.NoError(t, err)
	res, err := g.traversal.Traverse(context.Background(), queries.TraverseQuery{StartID: recipe.ID().String(), Depth: 1})
	require.NoError(t, err)
	assert.Len(t, res.Nodes, 6)
	assert.Len(t, res.Edges, 5)
}

func TestPipelineSharesIngredientsAcrossRecipes(t *testing.T) {
	g := newGraph(t)
	p := NewPipeline(g.nodes, g.edges, nil, g.cfg, zap.NewNop())

	src := &pageSource{pages: [][]RecipeRecord{
		{{Title: "Garlic Bread", Ingredients: []string{"3 cloves garlic"}}},
		{{Title: "Aioli", Ingredients: []string{"2 cloves Garlic, crushed"}}},
	}}
	report, err := p.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Batches)
	assert.Equal(t, 3, report.NodesCreated)

	garlic, err := g.nodes.FindByKey(context.Background(), "INGREDIENT", "garlic")
	require.NoError(t, err)
	list, err := g.edges.List(context.Background(), queries.ListEdgesQuery{ToID: garlic.ID().String()})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)

	bread, err := g.nodes.FindByKey(context.Background(), "RECIPE", "garlic-bread")
	require.NoError(t, err)
	assert.Equal(t, "Garlic Bread", bread.Properties()["name"])
}

func TestPipelineSourceFailure(t *testing.T) {
	g := newGraph(t)
	p := NewPipeline(g.nodes, g.edges, nil, g.cfg, zap.NewNop())

	boom := errors.New("throttled")
	_, err := p.Run(context.Background(), &pageSource{err: boom})
	assert.ErrorIs(t, err, boom)
}

type blockingNodes struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingNodes) EnsureNode(ctx context.Context, cmd commands.CreateNodeCommand) (*entities.Node, bool, error) {
	close(b.started)
	<-b.release
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	return nil, false, errors.New("stop here")
}

func TestPipelineCancellationFinishesInFlightBatch(t *testing.T) {
	nodes := &blockingNodes{started: make(chan struct{}), release: make(chan struct{})}
	cfg := config.DevelopmentDomainConfig()
	p := NewPipeline(nodes, nil, nil, cfg, zap.NewNop())
	src := &pageSource{pages: [][]RecipeRecord{{tomatoSoup}, {tomatoSoup}}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var report Report
	var err error
	go func() {
		defer close(done)
		report, err = p.Run(ctx, src)
	}()

	<-nodes.started
	cancel()
	close(nodes.release)
	<-done

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Batches)
	assert.Equal(t, 1, report.Records)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, src.calls, "no page is fetched after cancellation")
}
