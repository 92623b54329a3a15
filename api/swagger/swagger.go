package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Timetable API",
        "description": "Recurring schedule templates, conflict checking and session occurrence generation",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Authentication", "description": "Login and identity"},
        {"name": "Templates", "description": "Recurring schedule templates and approval"},
        {"name": "Occurrences", "description": "Generated session occurrences"},
        {"name": "Timetables", "description": "Timetable exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Access token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "security": [{"BearerAuth": []}],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/templates": {
            "get": {
                "tags": ["Templates"],
                "security": [{"BearerAuth": []}],
                "summary": "List schedule templates",
                "parameters": [
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "room", "in": "query", "type": "string"},
                    {"name": "dayOfWeek", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Templates"],
                "security": [{"BearerAuth": []}],
                "summary": "Create schedule template",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTemplateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"},
                    "409": {"description": "Schedule conflict"}
                }
            }
        },
        "/templates/{id}": {
            "get": {
                "tags": ["Templates"],
                "security": [{"BearerAuth": []}],
                "summary": "Get schedule template",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Templates"],
                "security": [{"BearerAuth": []}],
                "summary": "Update schedule template",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateTemplateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated"},
                    "409": {"description": "Schedule conflict or invalid state"}
                }
            },
            "delete": {
                "tags": ["Templates"],
                "security": [{"BearerAuth": []}],
                "summary": "Deactivate schedule template",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deactivated"}
                }
            }
        },
        "/templates/check-conflicts": {
            "post": {
                "tags": ["Templates"],
                "security": [{"BearerAuth": []}],
                "summary": "Check a proposed slot for conflicts",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConflictCandidate"}},
                    {"name": "excludeId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Conflict report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/templates/{id}/approve": {
            "post": {
                "tags": ["Templates"],
                "security": [{"BearerAuth": []}],
                "summary": "Approve a pending template",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Approved"},
                    "409": {"description": "Not pending"}
                }
            }
        },
        "/templates/{id}/reject": {
            "post": {
                "tags": ["Templates"],
                "security": [{"BearerAuth": []}],
                "summary": "Reject a pending template",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Rejected"},
                    "400": {"description": "Notes required"},
                    "409": {"description": "Not pending"}
                }
            }
        },
        "/templates/{id}/generate": {
            "post": {
                "tags": ["Occurrences"],
                "security": [{"BearerAuth": []}],
                "summary": "Generate dated occurrences for a template",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Generation report", "schema": {"$ref": "#/definitions/GenerationReport"}},
                    "409": {"description": "Template inactive or run in progress"}
                }
            }
        },
        "/occurrences": {
            "get": {
                "tags": ["Occurrences"],
                "security": [{"BearerAuth": []}],
                "summary": "List session occurrences",
                "parameters": [
                    {"name": "templateId", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "dateFrom", "in": "query", "type": "string"},
                    {"name": "dateTo", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/occurrences/{id}/status": {
            "put": {
                "tags": ["Occurrences"],
                "security": [{"BearerAuth": []}],
                "summary": "Update occurrence lifecycle status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateOccurrenceStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/teachers/{id}/timetable/export": {
            "get": {
                "tags": ["Timetables"],
                "security": [{"BearerAuth": []}],
                "summary": "Export a teacher's weekly timetable",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered document"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateTemplateRequest": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "class_id": {"type": "string"},
                "room": {"type": "string"},
                "building": {"type": "string"},
                "day_of_week": {"type": "string"},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "10:30"},
                "recurrence_type": {"type": "string", "enum": ["WEEKLY", "BIWEEKLY", "CUSTOM"]},
                "effective_from": {"type": "string", "example": "2026-09-01"},
                "effective_to": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["course_id", "teacher_id", "class_id", "day_of_week", "start_time", "end_time"]
        },
        "UpdateTemplateRequest": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "class_id": {"type": "string"},
                "room": {"type": "string"},
                "day_of_week": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "recurrence_type": {"type": "string"},
                "effective_from": {"type": "string"},
                "effective_to": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "ConflictCandidate": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "room": {"type": "string"},
                "day_of_week": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            },
            "required": ["teacher_id", "day_of_week", "start_time", "end_time"]
        },
        "RejectionRequest": {
            "type": "object",
            "properties": {
                "notes": {"type": "string"}
            },
            "required": ["notes"]
        },
        "GenerateRequest": {
            "type": "object",
            "properties": {
                "start_date": {"type": "string", "example": "2026-09-01"},
                "end_date": {"type": "string", "example": "2026-12-20"}
            },
            "required": ["start_date", "end_date"]
        },
        "UpdateOccurrenceStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["SCHEDULED", "IN_PROGRESS", "COMPLETED", "CANCELLED"]}
            },
            "required": ["status"]
        },
        "GenerationReport": {
            "type": "object",
            "properties": {
                "template_id": {"type": "string"},
                "created": {"type": "array", "items": {"type": "object"}},
                "skipped": {"type": "array", "items": {"type": "string"}},
                "failed": {"type": "array", "items": {"type": "object"}},
                "total_candidates": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
