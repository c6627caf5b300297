// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/ingest": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Ingest"],
                "summary": "Ingest a reading",
                "parameters": [
                    {"type": "string", "description": "Device shared secret", "name": "x-device-key", "in": "header", "required": true},
                    {"description": "Reading payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.ReadingPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.IngestSuccess"}},
                    "400": {"description": "INVALID_JSON or INVALID_PAYLOAD", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "401": {"description": "UNAUTHORIZED", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "429": {"description": "RATE_LIMITED", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "DB_ERROR or INTERNAL_ERROR", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/latest": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Readings"],
                "summary": "Latest reading",
                "parameters": [{"type": "string", "description": "Device ID", "name": "device_id", "in": "query", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "MISSING_PARAM", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "NOT_FOUND", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/range": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Readings"],
                "summary": "Readings in range",
                "parameters": [
                    {"type": "string", "description": "Device ID", "name": "device_id", "in": "query", "required": true},
                    {"type": "integer", "description": "Relative window in minutes", "name": "minutes", "in": "query"},
                    {"type": "string", "description": "Inclusive lower bound", "name": "from", "in": "query"},
                    {"type": "string", "description": "Inclusive upper bound", "name": "to", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "MISSING_PARAM or INVALID_PARAM", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/devices": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Readings"],
                "summary": "Devices",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/health/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Dependency status",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/debug": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Configuration diagnostics",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "FORBIDDEN", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Operator login",
                "parameters": [{"description": "Login request parameters", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "UNAUTHORIZED", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "controllers.IngestSuccess": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean", "example": true},
                "inserted_id": {"type": "integer", "example": 1024}
            }
        },
        "controllers.LoginRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {
                "username": {"type": "string", "example": "admin"},
                "password": {"type": "string", "example": "change-me"}
            }
        },
        "response.ErrorBody": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "INVALID_PAYLOAD"},
                "message": {"type": "string", "example": "Payload failed validation"},
                "details": {}
            }
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean", "example": false},
                "error": {"$ref": "#/definitions/response.ErrorBody"}
            }
        },
        "services.ReadingPayload": {
            "type": "object",
            "required": ["device_id"],
            "properties": {
                "device_id": {"type": "string", "maxLength": 64},
                "fw": {"type": "string"},
                "ts_ms": {"type": "number"},
                "uptime_s": {"type": "number", "minimum": 0},
                "uptime_ms": {"type": "number", "minimum": 0},
                "rssi": {"type": "number"},
                "status": {"type": "string"},
                "temp_c": {"type": "number"},
                "hum_pct": {"type": "number"},
                "temp_avg": {"type": "number"},
                "hum_avg": {"type": "number"},
                "fail_pct": {"type": "number", "minimum": 0},
                "health": {"type": "number", "minimum": 0, "maximum": 100},
                "sensor": {"type": "object"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Operator token with the Bearer prefix",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.4.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Telemetry HTTP Service API",
	Description:      "Ingestion and dashboard queries for sensor telemetry",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
