package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EmeraldMC Ban Appeals API",
        "description": "Submission and review API for Minecraft ban appeals",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Appeals", "description": "Player-facing appeal submission"},
        {"name": "Admin", "description": "Appeal review and moderation"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/appeals": {
            "post": {
                "tags": ["Appeals"],
                "summary": "Submit a ban appeal",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitAppealRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Record store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/appeals/{id}": {
            "get": {
                "tags": ["Appeals"],
                "summary": "Look up an appeal by id",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/appeals": {
            "get": {
                "tags": ["Admin"],
                "summary": "List appeals",
                "parameters": [
                    {"name": "username", "in": "query", "type": "string"},
                    {"name": "email", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "approved", "denied", "under_review"]},
                    {"name": "days", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/appeals/stats": {
            "get": {
                "tags": ["Admin"],
                "summary": "Aggregate appeal counts by status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/appeals/export": {
            "get": {
                "tags": ["Admin"],
                "summary": "Download appeals as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/api/v1/admin/appeals/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Fetch a single appeal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Admin"],
                "summary": "Permanently delete an appeal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/admin/appeals/{id}/status": {
            "patch": {
                "tags": ["Admin"],
                "summary": "Apply a review decision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/api/v1/admin/appeals/{id}/webhook-sent": {
            "post": {
                "tags": ["Admin"],
                "summary": "Mark an appeal's webhook as delivered",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Marked"},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "SubmitAppealRequest": {
            "type": "object",
            "required": ["username", "discordId", "email", "banReason", "appealReason"],
            "properties": {
                "username": {"type": "string", "minLength": 3, "maxLength": 16},
                "discordId": {"type": "string", "minLength": 2, "maxLength": 100},
                "email": {"type": "string", "format": "email"},
                "minecraftUuid": {"type": "string", "format": "uuid"},
                "banReason": {"type": "string", "enum": ["hacking", "toxicity", "scamming", "exploiting", "advertising", "inappropriate", "ban-evasion", "other"]},
                "appealReason": {"type": "string", "minLength": 50, "maxLength": 2000},
                "additionalInfo": {"type": "string", "maxLength": 2000}
            }
        },
        "UpdateStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["pending", "approved", "denied", "under_review"]},
                "response": {"type": "string"},
                "handledBy": {"type": "string"}
            }
        },
        "AppealStats": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "pending": {"type": "integer"},
                "approved": {"type": "integer"},
                "denied": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "object"}
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
