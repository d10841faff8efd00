package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "wk-search",
        "description": "Incremental subject search and suggestions over the local study store",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Provider", "description": "Search suggestion provider for the host search UI"},
        {"name": "Subjects", "description": "Subject store and grouped search results"},
        {"name": "Properties", "description": "Named string settings"},
        {"name": "Sync", "description": "Subject ingestion from the sync collaborator"},
        {"name": "Metrics", "description": "Instrumentation summary"}
    ],
    "paths": {
        "/providers/{authority}/search_suggest_query": {
            "get": {
                "tags": ["Provider"],
                "summary": "Search suggestions for the host",
                "parameters": [
                    {"name": "authority", "in": "path", "required": true, "type": "string"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "selectionArgs", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown authority", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Provider"],
                "summary": "Insert is not supported",
                "parameters": [
                    {"name": "authority", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "501": {"description": "Unsupported", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Provider"],
                "summary": "Update is not supported",
                "parameters": [
                    {"name": "authority", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "501": {"description": "Unsupported", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Provider"],
                "summary": "Delete is not supported",
                "parameters": [
                    {"name": "authority", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "501": {"description": "Unsupported", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/providers/{authority}/type": {
            "get": {
                "tags": ["Provider"],
                "summary": "MIME type of the suggestion URI",
                "parameters": [
                    {"name": "authority", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/suggestions": {
            "get": {
                "tags": ["Subjects"],
                "summary": "Search results grouped for list views",
                "parameters": [
                    {"name": "q", "in": "query", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{id}": {
            "get": {
                "tags": ["Subjects"],
                "summary": "Get subject by id",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Subjects"],
                "summary": "Insert or replace a subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Subject"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No display text", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/subjects/{id}/keys": {
            "get": {
                "tags": ["Subjects"],
                "summary": "List the search keys indexed for a subject",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/properties": {
            "get": {
                "tags": ["Properties"],
                "summary": "List properties",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Properties"],
                "summary": "Remove every property",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/properties/{name}": {
            "get": {
                "tags": ["Properties"],
                "summary": "Get property by name",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not set", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Properties"],
                "summary": "Store a property",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PutPropertyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Properties"],
                "summary": "Remove a property",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Removed"}
                }
            }
        },
        "/sync/subjects": {
            "post": {
                "tags": ["Sync"],
                "summary": "Queue a batch of subjects",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubjectBatch"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sync/full": {
            "post": {
                "tags": ["Sync"],
                "summary": "Replace every stored subject",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubjectBatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sync/jobs/{id}": {
            "get": {
                "tags": ["Sync"],
                "summary": "Status of a queued batch",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Instrumentation summary and store size",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Subject": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "suggestion_type": {"type": "string", "enum": ["Radical", "Kanji", "Vocabulary"]},
                "characters": {"type": "string"},
                "slug": {"type": "string"},
                "one_meaning": {"type": "string"},
                "meaning_rich_text": {"type": "string"}
            }
        },
        "SubjectBatch": {
            "type": "object",
            "properties": {
                "cursor": {"type": "string"},
                "subjects": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Subject"}
                }
            }
        },
        "PutPropertyRequest": {
            "type": "object",
            "required": ["value"],
            "properties": {
                "value": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
