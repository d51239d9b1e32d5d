// Package docs registers the OpenAPI description served under /swagger.
//
// Regenerate with:
//
//	swag init -g cmd/widget-api/main.go -o internal/docs --outputTypes go
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
        "/widgets": {
            "get": {
                "description": "Returns a page of widgets. Supports weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["Widgets"],
                "summary": "List widgets (paginated)",
                "operationId": "listWidgets",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListWidgetsResponse"}, "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}},
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Widgets"],
                "summary": "Create a widget",
                "operationId": "createWidget",
                "parameters": [
                    {"description": "Widget payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateWidgetRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Widget"}},
                    "400": {"description": "Invalid input or duplicate name", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/widgets/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Widgets"],
                "summary": "Get a widget",
                "operationId": "getWidget",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Widget ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Widget"}},
                    "400": {"description": "Malformed id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Widget not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Widgets"],
                "summary": "Delete a widget",
                "operationId": "deleteWidget",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Widget ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content", "schema": {"type": "string"}},
                    "400": {"description": "Malformed id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Widget not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Widgets"],
                "summary": "Update a widget",
                "operationId": "updateWidget",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Widget ID (UUID)", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateWidgetRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Widget"}},
                    "400": {"description": "Invalid input or duplicate name", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Widget not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/accounts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "List accounts (paginated)",
                "operationId": "listAccounts",
                "parameters": [
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListAccountsResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Register an account",
                "operationId": "createAccount",
                "parameters": [
                    {"description": "Account payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateAccountRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Account"}},
                    "400": {"description": "Invalid input or duplicate email", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/accounts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Get an account",
                "operationId": "getAccount",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Account ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Account"}},
                    "400": {"description": "Malformed id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Account not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Account": {
            "type": "object",
            "properties": {
                "age": {"type": "integer"},
                "created_at": {"type": "string"},
                "email": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Widget": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "stock": {"type": "integer"},
                "updated_at": {"type": "string"}
            }
        },
        "handlers.CreateAccountRequest": {
            "type": "object",
            "properties": {
                "age": {"type": "integer", "example": 34},
                "email": {"type": "string", "example": "ann@example.com"},
                "name": {"type": "string", "example": "Ann Example"}
            }
        },
        "handlers.CreateWidgetRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Blue Sprocket"},
                "price": {"type": "number", "example": 4.99},
                "stock": {"type": "integer", "example": 12}
            }
        },
        "handlers.UpdateWidgetRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Red Sprocket"},
                "price": {"type": "number", "example": 5.49},
                "stock": {"type": "integer", "example": 3}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "No widget found with that ID"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "status": {"type": "string", "example": "fail"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "has_next": {"type": "boolean"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "handlers.ListWidgetsResponse": {
            "type": "object",
            "properties": {
                "pagination": {"$ref": "#/definitions/handlers.Pagination"},
                "widgets": {"type": "array", "items": {"$ref": "#/definitions/domain.Widget"}}
            }
        },
        "handlers.ListAccountsResponse": {
            "type": "object",
            "properties": {
                "accounts": {"type": "array", "items": {"$ref": "#/definitions/domain.Account"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Widget API",
	Description:      "Widget catalog and account API with a centralized error pipeline.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
