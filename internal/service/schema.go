package service

import (
	"encoding/json"
	"time"

	"castgate/internal/conf"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const schemaCacheKey = "schema"

// SchemaPublisher serves the static descriptive document for the gateway's
// API surface. The rendered document is memoized in an expiring LRU so the
// JSON encoding happens at most once per schema TTL.
type SchemaPublisher struct {
	cache *expirable.LRU[string, []byte]
}

// NewSchemaPublisher creates the publisher with the schema-class TTL.
func NewSchemaPublisher(c *conf.Cache) *SchemaPublisher {
	ttl := 24 * time.Hour
	if c != nil && c.Schema != nil && c.Schema.Ttl.AsDuration() > 0 {
		ttl = c.Schema.Ttl.AsDuration()
	}
	return &SchemaPublisher{
		cache: expirable.NewLRU[string, []byte](1, nil, ttl),
	}
}

// Document returns the rendered schema document.
func (p *SchemaPublisher) Document() []byte {
	if doc, ok := p.cache.Get(schemaCacheKey); ok {
		return doc
	}

	doc, err := json.Marshal(schemaDocument())
	if err != nil {
		// The document is static; a marshal failure is a programming error.
		panic(err)
	}

	p.cache.Add(schemaCacheKey, doc)
	return doc
}

// schemaDocument describes the gateway endpoints, their parameters, and the
// cache class each is served under.
func schemaDocument() map[string]interface{} {
	return map[string]interface{}{
		"name":    "castgate",
		"version": "1",
		"endpoints": []map[string]interface{}{
			{
				"path":        "/api/v1/search",
				"method":      "GET",
				"description": "Search the podcast directory.",
				"parameters": []map[string]interface{}{
					{"name": "term", "required": true, "description": "Search term, up to 250 characters."},
					{"name": "country", "required": false, "description": "Two-letter country code, default us."},
					{"name": "limit", "required": false, "description": "Result limit 1-200, default 25."},
				},
				"cache_class": "search",
			},
			{
				"path":        "/api/v1/lookup",
				"method":      "GET",
				"description": "Fetch one podcast by directory id.",
				"parameters": []map[string]interface{}{
					{"name": "id", "required": true, "description": "Numeric directory id."},
				},
				"cache_class": "lookup",
			},
			{
				"path":        "/api/v1/top",
				"method":      "GET",
				"description": "Top podcast chart, optionally per genre.",
				"parameters": []map[string]interface{}{
					{"name": "genre", "required": false, "description": "Numeric genre id, see /api/v1/genres."},
					{"name": "country", "required": false, "description": "Two-letter country code, default us."},
					{"name": "limit", "required": false, "description": "Chart size 1-200, default 50."},
				},
				"cache_class": "directory",
			},
			{
				"path":        "/api/v1/genres",
				"method":      "GET",
				"description": "Static podcast genre table.",
				"cache_class": "schema",
			},
			{
				"path":        "/api/v1/schema",
				"method":      "GET",
				"description": "This document.",
				"cache_class": "schema",
			},
		},
	}
}
