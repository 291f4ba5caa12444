package mangle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, schema string) *Engine {
	t.Helper()
	engine := NewEngine(DefaultConfig())
	require.NoError(t, engine.LoadSchemaString(schema))
	return engine
}

func TestEngineLoadSchemaString(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	// Load schema using Mangle's Decl syntax (arguments are variables)
	require.NoError(t, engine.LoadSchemaString(`Decl test_fact(X, Y).`))

	assert.Error(t, engine.LoadSchemaString(`Decl broken(`))
	// A failed fragment does not poison later loads.
	require.NoError(t, engine.LoadSchemaString(`Decl other(X).`))
}

func TestEngineAddFactRequiresSchema(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	assert.ErrorContains(t, engine.AddFact("anything", "x"), "no schemas loaded")
	assert.ErrorContains(t, engine.RecomputeRules(), "no schemas loaded")
}

func TestEngineAddFactValidation(t *testing.T) {
	engine := newTestEngine(t, `Decl person(Name, Age).`)

	assert.ErrorContains(t, engine.AddFact("animal", "cat"), "not declared")
	assert.ErrorContains(t, engine.AddFact("person", "Alice"), "expects 2 args")
	assert.ErrorContains(t, engine.AddFact("person", "Alice", []int{1}), "unsupported")
}

func TestEngineDerivesRules(t *testing.T) {
	engine := newTestEngine(t, `
Decl parent(X, Y).
Decl ancestor(X, Y).
ancestor(X, Y) :- parent(X, Y).
ancestor(X, Z) :- parent(X, Y), ancestor(Y, Z).
`)
	require.NoError(t, engine.AddFacts([]Fact{
		{Predicate: "parent", Args: []interface{}{"/a", "/b"}},
		{Predicate: "parent", Args: []interface{}{"/b", "/c"}},
	}))

	facts, err := engine.GetFacts("ancestor")
	require.NoError(t, err)
	assert.Len(t, facts, 3)

	stats := engine.GetStats()
	assert.Equal(t, 2, stats.PredicateCounts["parent"])
	assert.Equal(t, 3, stats.PredicateCounts["ancestor"])
}

func TestEngineManualEval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoEval = false // Manual eval for testing
	engine := NewEngine(cfg)
	require.NoError(t, engine.LoadSchemaString(`
Decl edge(X, Y).
Decl node(X).
node(X) :- edge(X, _).
`))
	require.NoError(t, engine.AddFact("edge", "/a", "/b"))

	facts, err := engine.GetFacts("node")
	require.NoError(t, err)
	assert.Empty(t, facts)

	require.NoError(t, engine.RecomputeRules())
	facts, err = engine.GetFacts("node")
	require.NoError(t, err)
	assert.Len(t, facts, 1)
}

func TestEngineValueConversion(t *testing.T) {
	engine := newTestEngine(t, `Decl v(A, B, C, D).`)
	require.NoError(t, engine.AddFact("v", "/name", "text", int64(7), 0.5))

	facts, err := engine.GetFacts("v")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, []interface{}{"/name", "text", int64(7), 0.5}, facts[0].Args)
	assert.Equal(t, `v(/name, "text", 7, 0.5).`, facts[0].String())
}

func TestEngineFactLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FactLimit = 1
	engine := NewEngine(cfg)
	require.NoError(t, engine.LoadSchemaString(`Decl p(X).`))

	require.NoError(t, engine.AddFact("p", int64(1)))
	assert.ErrorContains(t, engine.AddFact("p", int64(2)), "fact limit exceeded")
}

func TestEngineClear(t *testing.T) {
	engine := newTestEngine(t, `Decl p(X).`)
	require.NoError(t, engine.AddFact("p", int64(1)))
	engine.Clear()

	facts, err := engine.GetFacts("p")
	require.NoError(t, err)
	assert.Empty(t, facts)

	_, err = engine.GetFacts("missing")
	assert.Error(t, err)
}
