package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Nightwatch API",
        "description": "Night-shift assignment and attendance reporting for residential courses",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and identity"},
        {"name": "Roster", "description": "Courses, rooms, groups, students, supervisors"},
        {"name": "Assignments", "description": "Group-room and supervisor-group bindings"},
        {"name": "Availability", "description": "Supervisor availability declarations"},
        {"name": "Shifts", "description": "Night-shift materialization and duty"},
        {"name": "Reports", "description": "Nightly report state machine and exports"}
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
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{id}/room": {
            "put": {
                "tags": ["Assignments"],
                "summary": "Bind a group to a room",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRoomRequest"}}
                ],
                "responses": {
                    "200": {"description": "Room snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Gender mismatch or capacity exceeded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Assignments"],
                "summary": "Release a group's room binding",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "Released"},
                    "404": {"description": "No active binding", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups/{id}/supervisors": {
            "put": {
                "tags": ["Assignments"],
                "summary": "Replace the supervisor set of a group",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignSupervisorsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Group detail", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflicting booking", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/shifts/materialize": {
            "post": {
                "tags": ["Shifts"],
                "summary": "Materialize shifts for a date range",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MaterializeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Materialization result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Open a draft report for a shift",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Report detail", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate shift report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}/submit": {
            "post": {
                "tags": ["Reports"],
                "summary": "Submit a draft report for review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Submitted report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Incomplete attendance or not editable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}/review": {
            "post": {
                "tags": ["Reports"],
                "summary": "Approve or reject a submitted report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "Reviewed report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role may not review", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "AssignRoomRequest": {
            "type": "object",
            "required": ["room_id"],
            "properties": {
                "room_id": {"type": "integer"}
            }
        },
        "AssignSupervisorsRequest": {
            "type": "object",
            "required": ["supervisor_ids", "effective_from", "effective_to"],
            "properties": {
                "supervisor_ids": {"type": "array", "items": {"type": "integer"}},
                "effective_from": {"type": "string"},
                "effective_to": {"type": "string"}
            }
        },
        "MaterializeRequest": {
            "type": "object",
            "required": ["course_id", "date_from", "date_to"],
            "properties": {
                "course_id": {"type": "integer"},
                "date_from": {"type": "string"},
                "date_to": {"type": "string"}
            }
        },
        "CreateReportRequest": {
            "type": "object",
            "required": ["shift_id", "type"],
            "properties": {
                "shift_id": {"type": "integer"},
                "type": {"type": "string"}
            }
        },
        "ReviewRequest": {
            "type": "object",
            "required": ["outcome"],
            "properties": {
                "outcome": {"type": "string"},
                "comment": {"type": "string"}
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
                "status": {"type": "integer"}
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
