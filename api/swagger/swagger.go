package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ShareGate Access API",
        "description": "OTP-gated file access with per-access audit trail",
        "version": "0.3.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Access", "description": "Recipient-facing verification and byte fetch"},
        {"name": "Traces", "description": "Uploader-facing audit trail"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
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
                    "200": {"description": "Ready"},
                    "503": {"description": "A backing store is unreachable"}
                }
            }
        },
        "/verify": {
            "post": {
                "tags": ["Access"],
                "summary": "Verify an access code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid or expired access code"}
                }
            }
        },
        "/verify/print": {
            "post": {
                "tags": ["Access"],
                "summary": "Fetch file bytes for inline rendering",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FetchRequest"}}
                ],
                "responses": {
                    "200": {"description": "File bytes"},
                    "401": {"description": "Invalid or expired access code"},
                    "502": {"description": "File store unavailable"}
                }
            }
        },
        "/verify/download": {
            "post": {
                "tags": ["Access"],
                "summary": "Fetch file bytes as an attachment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FetchRequest"}}
                ],
                "responses": {
                    "200": {"description": "File bytes"},
                    "401": {"description": "Invalid code or insufficient access level"},
                    "502": {"description": "File store unavailable"}
                }
            }
        },
        "/verify/print-job": {
            "post": {
                "tags": ["Access"],
                "summary": "Submit a print job to the broker",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PrintJobRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued"},
                    "401": {"description": "Invalid or expired access code"},
                    "502": {"description": "Print broker unavailable"}
                }
            }
        },
        "/traces": {
            "get": {
                "tags": ["Traces"],
                "summary": "List access events for the authenticated uploader",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer", "maximum": 1000}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or invalid bearer token"}
                }
            }
        },
        "/traces/export": {
            "get": {
                "tags": ["Traces"],
                "summary": "Export access events as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Export document"},
                    "401": {"description": "Missing or invalid bearer token"}
                }
            }
        }
    },
    "definitions": {
        "VerifyRequest": {
            "type": "object",
            "properties": {
                "otp": {"type": "string"}
            },
            "required": ["otp"]
        },
        "FetchRequest": {
            "type": "object",
            "properties": {
                "otp": {"type": "string"},
                "grant": {"type": "string"}
            }
        },
        "PrintJobRequest": {
            "type": "object",
            "properties": {
                "otp": {"type": "string"},
                "grant": {"type": "string"},
                "copies": {"type": "integer", "minimum": 1, "maximum": 10}
            }
        },
        "VerifyResponse": {
            "type": "object",
            "properties": {
                "public_id": {"type": "string"},
                "file_name": {"type": "string"},
                "content_type": {"type": "string"},
                "mode": {"type": "string", "enum": ["view", "download", "print", "share"]},
                "access": {"type": "string", "enum": ["view", "download"]},
                "single_use": {"type": "boolean"},
                "grant": {"type": "string"},
                "grant_expires_at": {"type": "string"}
            }
        },
        "AccessEvent": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "uploader_id": {"type": "string"},
                "client_ip": {"type": "string"},
                "user_agent": {"type": "string"},
                "otp_used": {"type": "string"},
                "file_name": {"type": "string"},
                "public_id": {"type": "string"},
                "file_deleted": {"type": "boolean"},
                "granted": {"type": "boolean"},
                "access_time": {"type": "string"},
                "location": {"$ref": "#/definitions/Location"},
                "headers": {"type": "object"}
            }
        },
        "Location": {
            "type": "object",
            "properties": {
                "country": {"type": "string"},
                "city": {"type": "string"},
                "region": {"type": "string"},
                "timezone": {"type": "string"}
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
