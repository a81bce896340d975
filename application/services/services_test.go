package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recipegraph/application/commands"
	"recipegraph/application/queries"
	"recipegraph/domain/config"
	"recipegraph/domain/core/entities"
	"recipegraph/domain/events"
	"recipegraph/infrastructure/persistence/sqlite"
	pkgerrors "recipegraph/pkg/errors"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	return m.Called(ctx, evts).Error(0)
}

type recordingMetrics struct {
	mu         sync.Mutex
	truncated  []string
	operations []string
}

func (m *recordingMetrics) ObserveOperation(operation string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations = append(m.operations, operation)
}
func (m *recordingMetrics) IngestedRecord(string)                         {}
func (m *recordingMetrics) TraversalTruncated(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.truncated = append(m.truncated, reason)
}

type fixture struct {
	store     *sqlite.Store
	nodes     *NodeService
	edges     *EdgeService
	search    *SearchService
	traversal *TraversalService
	metrics   *recordingMetrics
	cfg       *config.DomainConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "graph.db"), time.Second, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.DefaultDomainConfig()
	metrics := &recordingMetrics{}
	logger := zap.NewNop()
	return &fixture{
		store:     store,
		nodes:     NewNodeService(store, nil, metrics, cfg, logger),
		edges:     NewEdgeService(store, nil, metrics, cfg, logger),
		search:    NewSearchService(store, metrics, cfg, logger),
		traversal: NewTraversalService(store, metrics, cfg, logger),
		metrics:   metrics,
		cfg:       cfg,
	}
}

func (f *fixture) node(t *testing.T, nodeType string, props map[string]any) *entities.Node {
	t.Helper()
	n, err := f.nodes.Create(context.Background(), commands.CreateNodeCommand{Type: nodeType, Properties: props})
	require.NoError(t, err)
	return n
}

func (f *fixture) edge(t *testing.T, from, to *entities.Node, edgeType string) *entities.Edge {
	t.Helper()
	e, err := f.edges.Create(context.Background(), commands.CreateEdgeCommand{
		FromID: from.ID().String(),
		ToID:   to.ID().String(),
		Type:   edgeType,
	})
	require.NoError(t, err)
	return e
}

func nodeIDs(nodes []*entities.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID().String()
	}
	return out
}

func intPtr(v int) *int { return &v }

func TestNodeLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n := f.node(t, "recipe", map[string]any{"name": "Tomato Soup"})
	assert.Equal(t, 1, n.Version())

	for want := 2; want <= 3; want++ {
		updated, err := f.nodes.Update(ctx, commands.UpdateNodeCommand{
			NodeID:     n.ID().String(),
			Properties: map[string]any{"servings": want},
		})
		require.NoError(t, err)
		assert.Equal(t, want, updated.Version())
	}

	got, err := f.nodes.Get(ctx, n.ID().String())
	require.NoError(t, err)
	assert.Equal(t, "Tomato Soup", got.Properties()["name"])
	assert.Equal(t, json.Number("3"), got.Properties()["servings"])

	require.NoError(t, f.nodes.Delete(ctx, n.ID().String()))

	_, err = f.nodes.Get(ctx, n.ID().String())
	assert.True(t, pkgerrors.IsNotFound(err))

	err = f.nodes.Delete(ctx, n.ID().String())
	assert.True(t, pkgerrors.IsNotFound(err), "deletion is one-way")

	history, err := f.nodes.History(ctx, n.ID().String())
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i, rec := range history {
		assert.Equal(t, i+1, rec.Version)
	}
	assert.Equal(t, entities.StatusDeleted, history[3].Status)
}

func TestUpdateWithStaleVersionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n := f.node(t, "RECIPE", map[string]any{"name": "Soup"})

	_, err := f.nodes.Update(ctx, commands.UpdateNodeCommand{
		NodeID:          n.ID().String(),
		Properties:      map[string]any{"name": "Stew"},
		ExpectedVersion: intPtr(1),
	})
	require.NoError(t, err)

	_, err = f.nodes.Update(ctx, commands.UpdateNodeCommand{
		NodeID:          n.ID().String(),
		Properties:      map[string]any{"name": "Broth"},
		ExpectedVersion: intPtr(1),
	})
	require.True(t, pkgerrors.IsConflict(err))

	got, err := f.nodes.Get(ctx, n.ID().String())
	require.NoError(t, err)
	assert.Equal(t, "Stew", got.Properties()["name"])
	assert.Equal(t, 2, got.Version())
}

func TestUpdateReplaceDropsMissingKeys(t *testing.T) {
	f := newFixture(t)
	n := f.node(t, "RECIPE", map[string]any{"name": "Soup", "url": "http://x"})

	got, err := f.nodes.Update(context.Background(), commands.UpdateNodeCommand{
		NodeID:     n.ID().String(),
		Properties: map[string]any{"name": "Stew"},
		Replace:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Stew"}, got.Properties())
}

func TestUnknownOpaqueIDIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const id = "does-not-exist"

	tests := []struct {
		name string
		call func() error
	}{
		{"get", func() error { _, err := f.nodes.Get(ctx, id); return err }},
		{"update", func() error {
			_, err := f.nodes.Update(ctx, commands.UpdateNodeCommand{NodeID: id, Properties: map[string]any{"a": 1}})
			return err
		}},
		{"delete", func() error { return f.nodes.Delete(ctx, id) }},
		{"purge", func() error { return f.nodes.Purge(ctx, id) }},
		{"history", func() error { _, err := f.nodes.History(ctx, id); return err }},
		{"traverse", func() error {
			_, err := f.traversal.Traverse(ctx, queries.TraverseQuery{StartID: id, Depth: 1})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, pkgerrors.IsNotFound(tt.call()))
		})
	}
}

func TestListPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var created []*entities.Node
	for i := 0; i < 5; i++ {
		created = append(created, f.node(t, "TAG", map[string]any{"name": i}))
	}
	f.node(t, "RECIPE", map[string]any{"name": "other"})
	require.NoError(t, f.nodes.Delete(ctx, created[2].ID().String()))

	first, err := f.nodes.List(ctx, queries.ListNodesQuery{Type: "TAG", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{created[4].ID().String(), created[3].ID().String()}, nodeIDs(first.Items))
	require.NotEmpty(t, first.NextCursor)

	second, err := f.nodes.List(ctx, queries.ListNodesQuery{Type: "TAG", Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{created[1].ID().String(), created[0].ID().String()}, nodeIDs(second.Items))
	assert.Empty(t, second.NextCursor)

	var all []*entities.Node
	for n, err := range f.nodes.All(ctx, "TAG") {
		require.NoError(t, err)
		all = append(all, n)
	}
	assert.Len(t, all, 4)
}

func TestEnsureNodeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cmd := commands.CreateNodeCommand{Type: "INGREDIENT", Key: "tomato", Properties: map[string]any{"name": "tomato"}}

	first, created, err := f.nodes.EnsureNode(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.nodes.EnsureNode(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID(), second.ID())

	found, err := f.nodes.FindByKey(ctx, "ingredient", "tomato")
	require.NoError(t, err)
	assert.Equal(t, first.ID(), found.ID())

	require.NoError(t, f.nodes.Delete(ctx, first.ID().String()))
	_, _, err = f.nodes.EnsureNode(ctx, cmd)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestEnsureNodeConcurrentCallersConverge(t *testing.T) {
	f := newFixture(t)
	cmd := commands.CreateNodeCommand{Type: "TAG", Key: "dessert"}

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, _, err := f.nodes.EnsureNode(context.Background(), cmd)
			if assert.NoError(t, err) {
				ids[i] = n.ID().String()
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestPurgeRemovesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.node(t, "RECIPE", map[string]any{"name": "Tomato Soup"})
	tomato := f.node(t, "INGREDIENT", map[string]any{"name": "tomato"})
	e := f.edge(t, recipe, tomato, "HAS_INGREDIENT")

	require.NoError(t, f.nodes.Purge(ctx, tomato.ID().String()))

	_, err := f.edges.Get(ctx, e.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = f.nodes.History(ctx, tomato.ID().String())
	assert.True(t, pkgerrors.IsNotFound(err))

	err = f.nodes.Purge(ctx, tomato.ID().String())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestCreateEdgeRequiresActiveEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.node(t, "RECIPE", map[string]any{"name": "Soup"})
	gone := f.node(t, "INGREDIENT", map[string]any{"name": "leek"})
	require.NoError(t, f.nodes.Delete(ctx, gone.ID().String()))

	tests := []struct {
		name string
		to   string
	}{
		{"deleted endpoint", gone.ID().String()},
		{"unknown endpoint", "3f1c2a9e-0a52-4c39-9d7e-6f0a8b1f4e21"},
		{"opaque unknown endpoint", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.edges.Create(ctx, commands.CreateEdgeCommand{
				FromID: recipe.ID().String(),
				ToID:   tt.to,
				Type:   "HAS_INGREDIENT",
			})
			assert.True(t, pkgerrors.IsReferential(err))
		})
	}

	list, err := f.edges.List(ctx, queries.ListEdgesQuery{FromID: recipe.ID().String()})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestEdgeListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.node(t, "RECIPE", map[string]any{"name": "Soup"})
	tomato := f.node(t, "INGREDIENT", map[string]any{"name": "tomato"})
	vegan := f.node(t, "TAG", map[string]any{"name": "vegan"})
	first := f.edge(t, recipe, tomato, "HAS_INGREDIENT")
	second := f.edge(t, recipe, vegan, "HAS_TAG")

	list, err := f.edges.List(ctx, queries.ListEdgesQuery{FromID: recipe.ID().String()})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, first.ID, list.Items[0].ID)
	assert.Equal(t, second.ID, list.Items[1].ID)
	assert.False(t, list.Truncated)

	list, err = f.edges.List(ctx, queries.ListEdgesQuery{Type: "has_tag"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	list, err = f.edges.List(ctx, queries.ListEdgesQuery{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
	assert.False(t, list.Truncated)

	list, err = f.edges.List(ctx, queries.ListEdgesQuery{FromID: "unknown"})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	got, err := f.edges.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, vegan.ID(), got.ToID)
	assert.Contains(t, f.metrics.operations, "edge.get")

	require.NoError(t, f.edges.Delete(ctx, first.ID))
	assert.True(t, pkgerrors.IsNotFound(f.edges.Delete(ctx, first.ID)))
}

func TestEdgeListFlagsTruncation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cfg.MaxEdgeListSize = 2
	recipe := f.node(t, "RECIPE", map[string]any{"name": "Soup"})
	var want []int64
	for _, name := range []string{"tomato", "leek", "onion"} {
		want = append(want, f.edge(t, recipe, f.node(t, "INGREDIENT", map[string]any{"name": name}), "HAS_INGREDIENT").ID)
	}

	tests := []struct {
		name  string
		query queries.ListEdgesQuery
	}{
		{"unfiltered", queries.ListEdgesQuery{}},
		{"by source", queries.ListEdgesQuery{FromID: recipe.ID().String()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := f.edges.List(ctx, tt.query)
			require.NoError(t, err)
			assert.True(t, list.Truncated)
			require.Len(t, list.Items, 2)
			assert.Equal(t, want[:2], []int64{list.Items[0].ID, list.Items[1].ID})
		})
	}

	f.cfg.MaxEdgeListSize = 3
	list, err := f.edges.List(ctx, queries.ListEdgesQuery{})
	require.NoError(t, err)
	assert.False(t, list.Truncated)
	assert.Len(t, list.Items, 3)
}

func TestEnsureEdgeDoesNotDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.node(t, "RECIPE", map[string]any{"name": "Soup"})
	tomato := f.node(t, "INGREDIENT", map[string]any{"name": "tomato"})
	cmd := commands.CreateEdgeCommand{FromID: recipe.ID().String(), ToID: tomato.ID().String(), Type: "HAS_INGREDIENT"}

	a, created, err := f.edges.EnsureEdge(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, created)
	b, created, err := f.edges.EnsureEdge(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soup := f.node(t, "RECIPE", map[string]any{"name": "Tomato Soup", "description": "warming"})
	tomato := f.node(t, "INGREDIENT", map[string]any{"name": "TOMATO"})
	f.node(t, "RECIPE", map[string]any{"name": "Chocolate Cake"})
	gone := f.node(t, "RECIPE", map[string]any{"name": "Tomato Salad"})
	require.NoError(t, f.nodes.Delete(ctx, gone.ID().String()))

	hits, err := f.search.Search(ctx, queries.SearchQuery{Query: "tomato"})
	require.NoError(t, err)
	var ids []string
	for _, h := range hits {
		ids = append(ids, h.Node.ID().String())
	}
	assert.ElementsMatch(t, []string{soup.ID().String(), tomato.ID().String()}, ids)

	hits, err = f.search.Search(ctx, queries.SearchQuery{Query: "tomato", Type: "recipe"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, soup.ID(), hits[0].Node.ID())

	hits, err = f.search.Search(ctx, queries.SearchQuery{Query: "?!"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	for _, q := range []string{"", "   "} {
		hits, err = f.search.Search(ctx, queries.SearchQuery{Query: q})
		require.NoError(t, err)
		assert.NotNil(t, hits)
		assert.Empty(t, hits)
	}
}

func TestSearchTiesPreferRecentlyUpdated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.nodes.now = func() time.Time { return clock }

	older := f.node(t, "RECIPE", map[string]any{"name": "Tomato Soup"})
	clock = clock.Add(time.Minute)
	newer := f.node(t, "RECIPE", map[string]any{"name": "Tomato Soup"})

	ranked := func() []string {
		hits, err := f.search.Search(ctx, queries.SearchQuery{Query: "tomato"})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, hits[0].Score, hits[1].Score)
		return []string{hits[0].Node.ID().String(), hits[1].Node.ID().String()}
	}
	assert.Equal(t, []string{newer.ID().String(), older.ID().String()}, ranked())

	clock = clock.Add(time.Minute)
	_, err := f.nodes.Update(ctx, commands.UpdateNodeCommand{
		NodeID:     older.ID().String(),
		Properties: map[string]any{"name": "Tomato Soup"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{older.ID().String(), newer.ID().String()}, ranked())
}

func TestSearchCategory(t *testing.T) {
	f := newFixture(t)
	cake := f.node(t, "RECIPE", map[string]any{"name": "Chocolate Cake"})
	f.node(t, "RECIPE", map[string]any{"name": "Beef Stew"})

	hits, err := f.search.SearchCategory(context.Background(), "dessert", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, cake.ID(), hits[0].Node.ID())
}

func TestTraverseChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.node(t, "RECIPE", map[string]any{"name": "A"})
	b := f.node(t, "INGREDIENT", map[string]any{"name": "B"})
	c := f.node(t, "RECIPE", map[string]any{"name": "C"})
	d := f.node(t, "INGREDIENT", map[string]any{"name": "D"})
	ab := f.edge(t, a, b, "HAS_INGREDIENT")
	cb := f.edge(t, c, b, "HAS_INGREDIENT")
	f.edge(t, c, d, "HAS_INGREDIENT")

	res, err := f.traversal.Traverse(ctx, queries.TraverseQuery{StartID: a.ID().String(), Depth: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID().String(), b.ID().String(), c.ID().String()}, nodeIDs(res.Nodes))
	require.Len(t, res.Edges, 2)
	assert.Equal(t, ab.ID, res.Edges[0].ID)
	assert.Equal(t, cb.ID, res.Edges[1].ID)
	assert.False(t, res.Truncated)

	again, err := f.traversal.Traverse(ctx, queries.TraverseQuery{StartID: a.ID().String(), Depth: 2})
	require.NoError(t, err)
	first, _ := json.Marshal(res)
	second, _ := json.Marshal(again)
	assert.JSONEq(t, string(first), string(second))
}

func TestTraverseDepthEdges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.node(t, "RECIPE", map[string]any{"name": "A"})
	b := f.node(t, "TAG", map[string]any{"name": "B"})
	f.edge(t, a, b, "HAS_TAG")

	res, err := f.traversal.Traverse(ctx, queries.TraverseQuery{StartID: a.ID().String(), Depth: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID().String()}, nodeIDs(res.Nodes))
	assert.Empty(t, res.Edges)

	res, err = f.traversal.Traverse(ctx, queries.TraverseQuery{StartID: a.ID().String(), Depth: 99})
	require.NoError(t, err)
	assert.True(t, res.DepthClamped)
	assert.Equal(t, f.cfg.MaxTraversalDepth, res.Depth)
	assert.Equal(t, 99, res.RequestedDepth)
	assert.Len(t, res.Nodes, 2)
}

func TestTraverseSkipsDeletedNodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.node(t, "RECIPE", map[string]any{"name": "A"})
	b := f.node(t, "INGREDIENT", map[string]any{"name": "B"})
	c := f.node(t, "RECIPE", map[string]any{"name": "C"})
	f.edge(t, a, b, "HAS_INGREDIENT")
	f.edge(t, c, b, "HAS_INGREDIENT")
	require.NoError(t, f.nodes.Delete(ctx, b.ID().String()))

	res, err := f.traversal.Traverse(ctx, queries.TraverseQuery{StartID: a.ID().String(), Depth: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID().String()}, nodeIDs(res.Nodes))
	assert.Empty(t, res.Edges)

	_, err = f.traversal.Traverse(ctx, queries.TraverseQuery{StartID: b.ID().String(), Depth: 1})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestTraverseCaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hub := f.node(t, "INGREDIENT", map[string]any{"name": "salt"})
	for i := 0; i < 4; i++ {
		r := f.node(t, "RECIPE", map[string]any{"name": i})
		f.edge(t, r, hub, "HAS_INGREDIENT")
	}

	f.cfg.MaxFanOutPerLevel = 2
	res, err := f.traversal.Traverse(ctx, queries.TraverseQuery{StartID: hub.ID().String(), Depth: 1})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, queries.TruncatedFanOut, res.TruncatedReason)
	assert.Len(t, res.Nodes, 3)

	f.cfg.MaxFanOutPerLevel = 100
	f.cfg.MaxTraversalNodes = 3
	res, err = f.traversal.Traverse(ctx, queries.TraverseQuery{StartID: hub.ID().String(), Depth: 1})
	require.NoError(t, err)
	assert.Equal(t, queries.TruncatedNodeLimit, res.TruncatedReason)
	assert.Len(t, res.Nodes, 3)
	assert.Len(t, res.Edges, 2)

	assert.Equal(t, []string{queries.TruncatedFanOut, queries.TruncatedNodeLimit}, f.metrics.truncated)
}

func TestEndToEndRecipeScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.node(t, "RECIPE", map[string]any{"name": "Tomato Soup"})
	tomato := f.node(t, "INGREDIENT", map[string]any{"name": "tomato"})
	e, err := f.edges.Create(ctx, commands.CreateEdgeCommand{
		FromID:     recipe.ID().String(),
		ToID:       tomato.ID().String(),
		Type:       "HAS_INGREDIENT",
		Properties: map[string]any{"quantity": "2", "unit": "cups"},
	})
	require.NoError(t, err)

	res, err := f.traversal.Traverse(ctx, queries.TraverseQuery{StartID: recipe.ID().String(), Depth: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{recipe.ID().String(), tomato.ID().String()}, nodeIDs(res.Nodes))
	require.Len(t, res.Edges, 1)
	assert.Equal(t, e.ID, res.Edges[0].ID)
	assert.Equal(t, "cups", res.Edges[0].Properties["unit"])
}

func TestEventsArePublishedAfterCommit(t *testing.T) {
	f := newFixture(t)
	pub := &mockPublisher{}
	pub.On("PublishBatch", mock.Anything, mock.MatchedBy(func(evts []events.DomainEvent) bool {
		return len(evts) == 1 && evts[0].GetEventType() == events.TypeNodeCreated
	})).Return(nil).Once()
	pub.On("PublishBatch", mock.Anything, mock.MatchedBy(func(evts []events.DomainEvent) bool {
		return len(evts) == 1 && evts[0].GetEventType() == events.TypeNodeDeleted
	})).Return(assert.AnError).Once()

	svc := NewNodeService(f.store, pub, nil, f.cfg, zap.NewNop())
	n, err := svc.Create(context.Background(), commands.CreateNodeCommand{Type: "TAG", Properties: map[string]any{"name": "x"}})
	require.NoError(t, err)
	assert.Empty(t, n.GetUncommittedEvents())

	require.NoError(t, svc.Delete(context.Background(), n.ID().String()), "publish failures do not fail the write")
	pub.AssertExpectations(t)

	_, err = svc.Create(context.Background(), commands.CreateNodeCommand{Type: "bad type!"})
	require.True(t, pkgerrors.IsValidation(err))
	pub.AssertNumberOfCalls(t, "PublishBatch", 2)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	svc := NewHealthService(f.store, time.Second, zap.NewNop())
	h := svc.Check(context.Background())
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.StoreReachable)

	require.NoError(t, f.store.Close())
	h = svc.Check(context.Background())
	assert.False(t, h.StoreReachable)
}
