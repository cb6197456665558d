// Package docs registers the gateway's swagger document with swag.
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
        "/presence/online": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Snapshot of the users with at least one live gateway connection, in the order they came online",
                "produces": ["application/json"],
                "tags": ["presence"],
                "summary": "Online users",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.OnlineUsersResponse"}},
                    "401": {"description": "unAuthorization", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Gateway is shutting down", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/presence/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Connection, call and delivery counters of the gateway",
                "produces": ["application/json"],
                "tags": ["presence"],
                "summary": "Gateway stats",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/websocket.Stats"}},
                    "401": {"description": "unAuthorization", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Gateway is shutting down", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/ws": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Upgrade to the realtime gateway. The bearer token goes in the Authorization header or the token query parameter.",
                "tags": ["websocket"],
                "summary": "WebSocket connection",
                "parameters": [
                    {"type": "string", "description": "Bearer token when the Authorization header cannot be set", "name": "token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols - WebSocket connection established"},
                    "401": {"description": "unAuthorization", "schema": {"type": "object", "additionalProperties": true}},
                    "429": {"description": "Too many handshakes from this IP", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "details": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "models.OnlineUsersResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "users": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "websocket.Stats": {
            "type": "object",
            "properties": {
                "activeCalls": {"type": "integer"},
                "callsEnded": {"type": "integer"},
                "callsStarted": {"type": "integer"},
                "connections": {"type": "integer"},
                "framesDelivered": {"type": "integer"},
                "framesDropped": {"type": "integer"},
                "framesRejected": {"type": "integer"},
                "onlineUsers": {"type": "integer"},
                "peakFanout": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Social Gateway API",
	Description:      "Realtime presence, room membership and call signaling gateway",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
