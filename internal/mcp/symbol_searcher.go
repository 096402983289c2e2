package mcp

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mvp-joe/cpp-cortex/internal/storage"
)

// SymbolSearcher defines the interface for fuzzy symbol name search.
type SymbolSearcher interface {
	// Search finds entities whose name approximately matches queryStr.
	// Options parameter may be nil (defaults will be applied).
	Search(ctx context.Context, queryStr string, options *SymbolSearchOptions) ([]EntityResult, error)

	// Rebuild reindexes every entity from the store. Call after an index run.
	Rebuild(ctx context.Context) error

	// Close releases resources held by the searcher.
	Close() error
}

// SymbolSearchOptions narrows a fuzzy symbol search.
type SymbolSearchOptions struct {
	EntityType string // class | enum | function | typedef, "" for all
	Namespace  string // exact namespace, "" for all
	Limit      int    // Maximum results (1-100)
}

// DefaultSymbolSearchOptions returns default search options.
func DefaultSymbolSearchOptions() *SymbolSearchOptions {
	return &SymbolSearchOptions{Limit: 25}
}

// symbolSearcher implements SymbolSearcher using an in-memory bleve index.
type symbolSearcher struct {
	reader *storage.EntityReader
	mu     sync.RWMutex // Protects index during rebuilds
	index  bleve.Index
}

// NewSymbolSearcher creates a SymbolSearcher backed by an in-memory bleve
// index populated from every entity in the store.
func NewSymbolSearcher(ctx context.Context, db *sql.DB) (SymbolSearcher, error) {
	s := &symbolSearcher{reader: storage.NewEntityReader(db)}

	if err := s.Rebuild(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// buildSymbolMapping creates the index mapping for entity documents.
// Names are analyzed for fuzzy and prefix matching; filter fields use the
// keyword analyzer for exact matching.
func buildSymbolMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	// Name field (primary search target) - standard analyzer
	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = "standard"
	nameMapping.Store = true
	nameMapping.Index = true

	// Qualified name (ns::name) - standard analyzer splits on "::", so a
	// "geo::Shape" query matches both tokens
	qualifiedMapping := bleve.NewTextFieldMapping()
	qualifiedMapping.Analyzer = "standard"
	qualifiedMapping.Store = false
	qualifiedMapping.Index = true

	// Namespace field (filterable) - keyword analyzer for exact matching
	namespaceMapping := bleve.NewTextFieldMapping()
	namespaceMapping.Analyzer = "keyword"
	namespaceMapping.Store = true
	namespaceMapping.Index = true

	// Entity type field (filterable) - keyword analyzer
	entityTypeMapping := bleve.NewTextFieldMapping()
	entityTypeMapping.Analyzer = "keyword"
	entityTypeMapping.Store = true
	entityTypeMapping.Index = true

	// File path field (stored for results) - standard analyzer
	filePathMapping := bleve.NewTextFieldMapping()
	filePathMapping.Analyzer = "standard"
	filePathMapping.Store = true
	filePathMapping.Index = true

	// Decl type (stored but not searched)
	declTypeMapping := bleve.NewTextFieldMapping()
	declTypeMapping.Analyzer = "keyword"
	declTypeMapping.Store = true
	declTypeMapping.Index = false

	// Line number (stored but not searched)
	lineMapping := bleve.NewNumericFieldMapping()
	lineMapping.Store = true
	lineMapping.Index = false

	// Template flag (stored but not searched)
	templateMapping := bleve.NewBooleanFieldMapping()
	templateMapping.Store = true
	templateMapping.Index = false

	// Document mapping
	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", nameMapping)
	docMapping.AddFieldMappingsAt("qualified", qualifiedMapping)
	docMapping.AddFieldMappingsAt("namespace", namespaceMapping)
	docMapping.AddFieldMappingsAt("entity_type", entityTypeMapping)
	docMapping.AddFieldMappingsAt("file_path", filePathMapping)
	docMapping.AddFieldMappingsAt("decl_type", declTypeMapping)
	docMapping.AddFieldMappingsAt("line_number", lineMapping)
	docMapping.AddFieldMappingsAt("is_template", templateMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// entityToDocument converts a stored entity to a bleve document.
func entityToDocument(e *storage.Entity) map[string]interface{} {
	qualified := e.Name
	if e.Namespace != "" {
		qualified = e.Namespace + "::" + e.Name
	}
	return map[string]interface{}{
		"name":        e.Name,
		"qualified":   qualified,
		"namespace":   e.Namespace,
		"entity_type": e.EntityType,
		"file_path":   e.FilePath,
		"decl_type":   e.DeclType,
		"line_number": e.LineNumber,
		"is_template": e.IsTemplate,
	}
}

// indexEntities adds entities to the bleve index in batches.
func indexEntities(ctx context.Context, index bleve.Index, entities []storage.Entity) error {
	const batchSize = 1000

	batch := index.NewBatch()
	for i := range entities {
		// Check cancellation periodically
		if i%batchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		e := &entities[i]
		doc := entityToDocument(e)
		if err := batch.Index(strconv.FormatInt(e.ID, 10), doc); err != nil {
			return fmt.Errorf("failed to add entity %d to batch: %w", e.ID, err)
		}

		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}

	// Execute remaining
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}

	return nil
}

// Rebuild builds a fresh index from the store and swaps it in. The old
// index stays queryable until the swap.
func (s *symbolSearcher) Rebuild(ctx context.Context) error {
	entities, err := s.reader.SearchEntities(storage.SearchFilter{})
	if err != nil {
		return fmt.Errorf("failed to load entities: %w", err)
	}

	index, err := bleve.NewMemOnly(buildSymbolMapping())
	if err != nil {
		return fmt.Errorf("failed to create bleve index: %w", err)
	}

	if err := indexEntities(ctx, index, entities); err != nil {
		index.Close()
		return fmt.Errorf("failed to index entities: %w", err)
	}

	s.mu.Lock()
	old := s.index
	s.index = index
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Search executes a fuzzy symbol search: a disjunction of exact, fuzzy,
// and prefix matches on the name, plus the qualified form, AND-combined
// with any filters.
func (s *symbolSearcher) Search(ctx context.Context, queryStr string, options *SymbolSearchOptions) ([]EntityResult, error) {
	if options == nil {
		options = DefaultSymbolSearchOptions()
	}

	limit := options.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	nameMatch := bleve.NewMatchQuery(queryStr)
	nameMatch.SetField("name")
	nameMatch.SetFuzziness(1)

	// Prefix terms are not analyzed, so lowercase to match the indexed form
	namePrefix := bleve.NewPrefixQuery(strings.ToLower(queryStr))
	namePrefix.SetField("name")

	qualifiedMatch := bleve.NewMatchQuery(queryStr)
	qualifiedMatch.SetField("qualified")

	var queries []query.Query
	queries = append(queries, bleve.NewDisjunctionQuery(nameMatch, namePrefix, qualifiedMatch))

	if options.EntityType != "" {
		typeQuery := bleve.NewMatchQuery(options.EntityType)
		typeQuery.SetField("entity_type")
		queries = append(queries, typeQuery)
	}
	if options.Namespace != "" {
		nsQuery := bleve.NewMatchQuery(options.Namespace)
		nsQuery.SetField("namespace")
		queries = append(queries, nsQuery)
	}

	var finalQuery query.Query
	if len(queries) == 1 {
		finalQuery = queries[0]
	} else {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	searchRequest := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	searchRequest.Fields = []string{
		"name", "namespace", "entity_type", "file_path", "decl_type",
		"line_number", "is_template",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	results := make([]EntityResult, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}

		name, _ := hit.Fields["name"].(string)
		namespace, _ := hit.Fields["namespace"].(string)
		entityType, _ := hit.Fields["entity_type"].(string)
		filePath, _ := hit.Fields["file_path"].(string)
		declType, _ := hit.Fields["decl_type"].(string)
		isTemplate, _ := hit.Fields["is_template"].(bool)

		lineNumber := 0
		if f, ok := hit.Fields["line_number"].(float64); ok {
			lineNumber = int(f)
		}

		qualified := name
		if namespace != "" {
			qualified = namespace + "::" + name
		}

		results = append(results, EntityResult{
			ID:            id,
			Name:          name,
			QualifiedName: qualified,
			Namespace:     namespace,
			EntityType:    entityType,
			DeclType:      declType,
			FilePath:      filePath,
			LineNumber:    lineNumber,
			IsTemplate:    isTemplate,
			Score:         hit.Score,
		})
	}

	return results, nil
}

// Close releases resources held by the searcher.
func (s *symbolSearcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index.Close()
	}
	return nil
}
