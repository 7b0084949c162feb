package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Sahayak Store API",
        "description": "Persistent session and attendance store for the Sahayak assistant",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sessions", "description": "Durable user sessions with mergeable state"},
        {"name": "Attendance", "description": "Student attendance records"},
        {"name": "Reports", "description": "Attendance summaries and exports"}
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
        "/api/sessions/{userId}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List a user's sessions with state summaries",
                "parameters": [
                    {"name": "userId", "in": "path", "type": "string", "required": true},
                    {"name": "app_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Get or create the user's current session",
                "parameters": [
                    {"name": "userId", "in": "path", "type": "string", "required": true},
                    {"name": "app_id", "in": "query", "type": "string"},
                    {"name": "force_new", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/sessions/{userId}/{sessionId}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get one session with its full state",
                "parameters": [
                    {"name": "userId", "in": "path", "type": "string", "required": true},
                    {"name": "sessionId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/api/sessions/{userId}/{sessionId}/state": {
            "patch": {
                "tags": ["Sessions"],
                "summary": "Merge a partial state patch into a session",
                "parameters": [
                    {"name": "userId", "in": "path", "type": "string", "required": true},
                    {"name": "sessionId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/api/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List a subject's attendance on one date",
                "parameters": [
                    {"name": "subject", "in": "query", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark one student's attendance",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/MarkAttendanceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/api/attendance/bulk": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark a batch of attendance records atomically",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error, nothing committed"}
                }
            }
        },
        "/api/attendance/students/{studentId}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List one student's attendance history",
                "parameters": [
                    {"name": "studentId", "in": "path", "type": "string", "required": true},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/attendance/classes/{subject}": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List a subject's attendance across a date range",
                "parameters": [
                    {"name": "subject", "in": "path", "type": "string", "required": true},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/reports/classes/{subject}/summary": {
            "get": {
                "tags": ["Reports"],
                "summary": "Attendance summary for a subject over a date range",
                "parameters": [
                    {"name": "subject", "in": "path", "type": "string", "required": true},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/reports/students/{studentId}/rate": {
            "get": {
                "tags": ["Reports"],
                "summary": "Attendance rate for one student",
                "parameters": [
                    {"name": "studentId", "in": "path", "type": "string", "required": true},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/reports/classes/{subject}/register": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a subject's attendance register as CSV or PDF",
                "parameters": [
                    {"name": "subject", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "MarkAttendanceRequest": {
            "type": "object",
            "required": ["student_id", "subject", "date", "status"],
            "properties": {
                "student_id": {"type": "string"},
                "student_name": {"type": "string"},
                "subject": {"type": "string"},
                "date": {"type": "string", "example": "2024-01-15"},
                "status": {"type": "string", "enum": ["present", "absent", "late", "excused"]},
                "marked_by": {"type": "string"}
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
