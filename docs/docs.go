// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o docs
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/health": {
            "get": {"tags": ["health"], "summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}
        },
        "/health/ready": {
            "get": {"tags": ["health"], "summary": "Readiness probe", "responses": {"200": {"description": "OK"}, "503": {"description": "degraded"}}}
        },
        "/api/login": {
            "post": {
                "tags": ["auth"], "summary": "Login",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}}, "401": {"description": "invalid credentials", "schema": {"$ref": "#/definitions/api.errorResponse"}}, "404": {"description": "user not found", "schema": {"$ref": "#/definitions/api.errorResponse"}}}
            }
        },
        "/api/social/auth": {
            "get": {"tags": ["auth"], "summary": "Start social login", "responses": {"302": {"description": "redirect to provider"}, "501": {"description": "not configured"}}}
        },
        "/api/social/login": {
            "get": {
                "tags": ["auth"], "summary": "Complete social login", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "code", "in": "query", "required": true}, {"type": "string", "name": "state", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.authResponse"}}, "401": {"description": "social login failed"}}
            }
        },
        "/api/courses": {
            "get": {
                "tags": ["courses"], "summary": "List courses", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "string", "enum": ["upcoming", "ongoing", "ended"], "name": "status", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "per_page", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.courseListResponse"}}}
            }
        },
        "/api/courses/{id}": {
            "get": {
                "tags": ["courses"], "summary": "Get a course", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Course"}}, "404": {"description": "not found", "schema": {"$ref": "#/definitions/api.errorResponse"}}}
            }
        },
        "/api/courses/{id}/register": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["registrations"], "summary": "Register for a course", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.registrationResponse"}},
                    "400": {"description": "registration window closed", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "404": {"description": "course not found", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "409": {"description": "course full or already registered", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "429": {"description": "rate limited"},
                    "503": {"description": "transient failure, retry", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/api/courses/{id}/unregister": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["registrations"], "summary": "Cancel a registration", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.registrationResponse"}}, "409": {"description": "not registered", "schema": {"$ref": "#/definitions/api.errorResponse"}}, "503": {"description": "transient failure, retry"}}
            }
        },
        "/api/my-courses": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["registrations"], "summary": "List the caller's registrations", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/user-profile": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Get the caller's profile", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}}}},
            "put": {
                "security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Update the caller's profile",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.profileRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.User"}}}
            }
        },
        "/api/admin/users": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "List users", "responses": {"200": {"description": "OK"}}},
            "post": {
                "security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Create a user",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createUserRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.authResponse"}}, "409": {"description": "user exists"}}
            }
        },
        "/api/admin/courses": {
            "post": {
                "security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Create a course",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.courseRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Course"}}}
            }
        },
        "/api/admin/courses/{id}": {
            "put": {
                "security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Update a course",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.courseRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Course"}}, "409": {"description": "closed for edit or capacity below registered"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Delete a course",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}, "409": {"description": "registration window has not passed"}}
            }
        },
        "/api/admin/courses/{id}/reconcile": {
            "post": {
                "security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Recompute a course's registered counter",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.reconcileResponse"}}}
            }
        }
    },
    "definitions": {
        "api.errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "code": {"type": "string"}, "state": {"type": "string"}}
        },
        "domain.Course": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "title": {"type": "string"}, "description": {"type": "string"},
                "date": {"type": "string"}, "time": {"type": "string"}, "location": {"type": "string"}, "image": {"type": "string"},
                "capacity": {"type": "integer"}, "registered": {"type": "integer"},
                "registration_start": {"type": "string", "format": "date-time"}, "registration_end": {"type": "string", "format": "date-time"},
                "created_at": {"type": "string", "format": "date-time"}, "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "domain.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "username": {"type": "string"}, "email": {"type": "string"}, "phone": {"type": "string"},
                "organization": {"type": "string"}, "address": {"type": "string"}, "role": {"type": "string"}, "social_provider": {"type": "string"}
            }
        },
        "handler.loginRequest": {
            "type": "object", "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "handler.authResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "user": {"$ref": "#/definitions/domain.User"}}
        },
        "handler.createUserRequest": {
            "type": "object", "required": ["username", "email", "password"],
            "properties": {"username": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string"}, "phone": {"type": "string"}, "organization": {"type": "string"}, "role": {"type": "string", "enum": ["admin", "student"]}}
        },
        "handler.profileRequest": {
            "type": "object", "required": ["username"],
            "properties": {"username": {"type": "string"}, "phone": {"type": "string"}, "organization": {"type": "string"}, "address": {"type": "string"}}
        },
        "handler.courseRequest": {
            "type": "object", "required": ["title", "capacity", "registration_start", "registration_end"],
            "properties": {
                "title": {"type": "string"}, "description": {"type": "string"}, "date": {"type": "string"}, "time": {"type": "string"},
                "location": {"type": "string"}, "image": {"type": "string"}, "capacity": {"type": "integer"},
                "registration_start": {"type": "string", "format": "date-time"}, "registration_end": {"type": "string", "format": "date-time"}
            }
        },
        "handler.courseListResponse": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/domain.Course"}}, "pagination": {"$ref": "#/definitions/handler.pagination"}}
        },
        "handler.pagination": {
            "type": "object",
            "properties": {"total": {"type": "integer"}, "page": {"type": "integer"}, "per_page": {"type": "integer"}, "has_more": {"type": "boolean"}}
        },
        "handler.registrationResponse": {
            "type": "object",
            "properties": {"registered": {"type": "integer"}, "capacity": {"type": "integer"}, "remaining": {"type": "integer"}}
        },
        "handler.reconcileResponse": {
            "type": "object",
            "properties": {"course_id": {"type": "string"}, "before": {"type": "integer"}, "after": {"type": "integer"}, "drifted": {"type": "boolean"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Course Registration API",
	Description:      "Course catalog, registration ledger and accounts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
