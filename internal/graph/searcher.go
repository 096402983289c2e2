package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// Query defaults and limits
const (
	DefaultDepth      = 1
	DefaultMaxResults = 100
	MaxDepth          = 10
	MaxResultsLimit   = 500
)

// ErrNotFound reports a query root that matches no stored class.
var ErrNotFound = errors.New("class not found")

// QueryRequest represents a hierarchy query request.
type QueryRequest struct {
	Name       string    // Class name to resolve as the root
	Namespace  *string   // Exact namespace; "" is global scope, nil matches any
	Direction  Direction // Which side to walk (default: both)
	Depth      int       // Traversal depth (default: 1, max: 10)
	MaxResults int       // Maximum number of results (default: 100, max: 500)
}

// QueryResponse represents the response to a hierarchy query.
type QueryResponse struct {
	Name          string        `json:"name"`
	Direction     Direction     `json:"direction"`
	Root          *ClassNode    `json:"root"`
	Results       []QueryResult `json:"results"`
	TotalFound    int           `json:"total_found"`
	TotalReturned int           `json:"total_returned"`
	Truncated     bool          `json:"truncated"`
	Metadata      ResponseMeta  `json:"metadata"`
}

// QueryResult is a single class reached by the traversal. Access and
// IsVirtual describe the inheritance edge the walk followed into the node.
type QueryResult struct {
	Node      *ClassNode `json:"node"`
	Relation  Direction  `json:"relation"` // derived or bases, relative to the root
	Depth     int        `json:"depth"`    // Hops from the root (minimum over all paths)
	Access    string     `json:"access,omitempty"`
	IsVirtual bool       `json:"is_virtual,omitempty"`
}

// ResponseMeta contains metadata about the query execution.
type ResponseMeta struct {
	TookMs int    `json:"took_ms"`
	Source string `json:"source"` // Always "graph"
}

// Searcher provides inheritance hierarchy queries with reverse indexes.
type Searcher interface {
	// Query resolves a class by name and walks the hierarchy in the
	// requested direction.
	Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error)

	// Reload rebuilds the graph from the store. Call after an index run.
	Reload(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// searcher implements Searcher with an in-memory graph and reverse indexes.
type searcher struct {
	reader *storage.EntityReader
	mu     sync.RWMutex // Protects graph and indexes

	// In-memory graph keyed by entity id
	graph graph.Graph[int64, *ClassNode]

	// Reverse indexes for O(1) neighbor lookups
	derivedOf map[int64][]hierarchyEdge // base -> classes inheriting from it
	basesOf   map[int64][]hierarchyEdge // derived -> its bases

	// byName resolves query roots without touching the store. Buckets are
	// sorted by id so the first match gives the same answer as
	// FindEntityByName.
	byName map[string][]*ClassNode
}

// hierarchyEdge is one inheritance edge as seen from either endpoint.
type hierarchyEdge struct {
	neighbor  int64
	access    string
	isVirtual bool
}

// hierarchyHit is an internal type for tracking traversal results before
// node materialization.
type hierarchyHit struct {
	id        int64
	relation  Direction
	depth     int
	access    string
	isVirtual bool
}

// NewSearcher creates a hierarchy searcher over db and performs the
// initial load.
func NewSearcher(db *sql.DB) (Searcher, error) {
	s := &searcher{reader: storage.NewEntityReader(db)}

	if err := s.Reload(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Reload reloads class entities and inheritance edges from the store and
// rebuilds the graph and indexes.
func (s *searcher) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	classes, err := s.reader.SearchEntities(storage.SearchFilter{Types: []string{storage.EntityClass}})
	if err != nil {
		return fmt.Errorf("failed to load classes: %w", err)
	}

	s.graph = graph.New(func(n *ClassNode) int64 { return n.ID }, graph.Directed())
	s.derivedOf = make(map[int64][]hierarchyEdge)
	s.basesOf = make(map[int64][]hierarchyEdge)
	s.byName = make(map[string][]*ClassNode)

	for i := range classes {
		node := nodeFromEntity(&classes[i])
		if err := s.graph.AddVertex(node); err != nil {
			return fmt.Errorf("failed to add class %s: %w", node.Name, err)
		}
		s.byName[node.Name] = append(s.byName[node.Name], node)
	}

	edges, err := s.reader.ListRelationships(storage.RelationInheritsFrom)
	if err != nil {
		return fmt.Errorf("failed to load relationships: %w", err)
	}

	for _, edge := range edges {
		// Both endpoints are class entities; tolerate strays rather than
		// failing the whole load.
		_ = s.graph.AddEdge(edge.FromEntityID, edge.ToEntityID)

		access, isVirtual := "", false
		if edge.Data != nil {
			access, isVirtual = edge.Data.Access, edge.Data.IsVirtual
		}
		s.basesOf[edge.FromEntityID] = append(s.basesOf[edge.FromEntityID],
			hierarchyEdge{neighbor: edge.ToEntityID, access: access, isVirtual: isVirtual})
		s.derivedOf[edge.ToEntityID] = append(s.derivedOf[edge.ToEntityID],
			hierarchyEdge{neighbor: edge.FromEntityID, access: access, isVirtual: isVirtual})
	}

	// SearchEntities orders by file position; root resolution wants
	// insertion order.
	for _, nodes := range s.byName {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	}

	return nil
}

// Query executes a hierarchy query. Results are collected breadth-first,
// so every reachable class appears once per direction with its minimum
// depth even when multiple inheritance paths lead to it.
func (s *searcher) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := time.Now()

	direction := req.Direction
	if direction == "" {
		direction = DirectionBoth
	}
	switch direction {
	case DirectionDerived, DirectionBases, DirectionBoth:
	default:
		return nil, fmt.Errorf("unsupported direction: %s", direction)
	}

	depth := req.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}

	root := s.resolveRoot(req.Name, req.Namespace)
	if root == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.Name)
	}

	var hits []hierarchyHit
	if direction == DirectionDerived || direction == DirectionBoth {
		hits = append(hits, s.collect(root.ID, s.derivedOf, depth, DirectionDerived)...)
	}
	if direction == DirectionBases || direction == DirectionBoth {
		hits = append(hits, s.collect(root.ID, s.basesOf, depth, DirectionBases)...)
	}

	// Build results
	results := make([]QueryResult, 0, len(hits))
	totalFound := 0

	for _, h := range hits {
		node, err := s.graph.Vertex(h.id)
		if err != nil {
			// Edge endpoint missing from the loaded set
			continue
		}
		totalFound++

		if len(results) >= maxResults {
			continue
		}
		results = append(results, QueryResult{
			Node:      node,
			Relation:  h.relation,
			Depth:     h.depth,
			Access:    h.access,
			IsVirtual: h.isVirtual,
		})
	}

	response := &QueryResponse{
		Name:          req.Name,
		Direction:     direction,
		Root:          root,
		Results:       results,
		TotalFound:    totalFound,
		TotalReturned: len(results),
		Truncated:     len(results) < totalFound,
		Metadata: ResponseMeta{
			TookMs: int(time.Since(start).Milliseconds()),
			Source: "graph",
		},
	}

	return response, nil
}

// collect walks index breadth-first from start, up to maxDepth hops.
func (s *searcher) collect(start int64, index map[int64][]hierarchyEdge, maxDepth int, relation Direction) []hierarchyHit {
	type frontier struct {
		id    int64
		depth int
	}

	seen := map[int64]bool{start: true}
	queue := []frontier{{id: start}}
	hits := []hierarchyHit{}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth == maxDepth {
			continue
		}

		for _, edge := range index[cur.id] {
			if seen[edge.neighbor] {
				continue
			}
			seen[edge.neighbor] = true

			hits = append(hits, hierarchyHit{
				id:        edge.neighbor,
				relation:  relation,
				depth:     cur.depth + 1,
				access:    edge.access,
				isVirtual: edge.isVirtual,
			})
			queue = append(queue, frontier{id: edge.neighbor, depth: cur.depth + 1})
		}
	}

	return hits
}

// resolveRoot picks the query root from the name index: exact namespace
// when one is given, otherwise the lowest-id match anywhere.
func (s *searcher) resolveRoot(name string, namespace *string) *ClassNode {
	for _, node := range s.byName[name] {
		if namespace == nil || node.Namespace == *namespace {
			return node
		}
	}
	return nil
}

func nodeFromEntity(e *storage.Entity) *ClassNode {
	node := &ClassNode{
		ID:         e.ID,
		Name:       e.Name,
		Namespace:  e.Namespace,
		FilePath:   e.FilePath,
		LineNumber: e.LineNumber,
		IsTemplate: e.IsTemplate,
	}
	if e.Class != nil {
		node.IsStruct = e.Class.IsStruct
	}
	return node
}

// Close releases resources.
func (s *searcher) Close() error {
	return nil
}
