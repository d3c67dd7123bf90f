package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FitZone Booking API",
        "description": "Fitness studio class booking and registration service",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Accounts and sessions"},
        {"name": "Classes", "description": "Class catalogue and rosters"},
        {"name": "Schedule", "description": "Class schedules and conflict checks"},
        {"name": "Registration", "description": "Class admission flow"},
        {"name": "Payments", "description": "Gateway orders and memberships"},
        {"name": "Analytics", "description": "Admin reporting"}
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
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List classes",
                "parameters": [
                    {"name": "trainerId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateClassRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/info/{classId}": {
            "get": {
                "tags": ["Classes"],
                "summary": "Get class detail",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found"}
                }
            }
        },
        "/classes/{classId}/queue-registration": {
            "post": {
                "tags": ["Registration"],
                "summary": "Queue for registration",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RegistrationResult"}},
                    "409": {"description": "Class full or conditions failed"}
                }
            },
            "delete": {
                "tags": ["Registration"],
                "summary": "Cancel queued registration",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/classes/{classId}/complete-registration": {
            "post": {
                "tags": ["Registration"],
                "summary": "Complete a paid registration",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"order_id": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "402": {"description": "Payment not settled"}
                }
            }
        },
        "/schedule/class/{classId}": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Get class schedule",
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/check-schedule-conflict": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Check user schedule conflict",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"user_id": {"type": "string"}, "class_id": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/UserConflictResult"}}
                }
            }
        },
        "/payment/membership-status": {
            "get": {
                "tags": ["Payments"],
                "summary": "Get membership status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MembershipStatus"}}
                }
            }
        },
        "/payment-class/check-status/{orderId}": {
            "get": {
                "tags": ["Payments"],
                "summary": "Poll payment order status",
                "parameters": [
                    {"name": "orderId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PaymentStatusResult"}}
                }
            }
        },
        "/analytics/revenue": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Revenue summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateClassRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "fee": {"type": "number"},
                "maxAttender": {"type": "integer"},
                "start_date": {"type": "string"},
                "end_date": {"type": "string"}
            },
            "required": ["name", "maxAttender", "start_date", "end_date"]
        },
        "RegistrationResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "order_url": {"type": "string"},
                "amount_due": {"type": "number"}
            }
        },
        "UserConflictResult": {
            "type": "object",
            "properties": {
                "hasConflict": {"type": "boolean"},
                "conflicts": {"type": "array", "items": {"type": "object"}}
            }
        },
        "MembershipStatus": {
            "type": "object",
            "properties": {
                "isActive": {"type": "boolean"},
                "membershipDetails": {
                    "type": "object",
                    "properties": {
                        "start_date": {"type": "string"},
                        "end_date": {"type": "string"}
                    }
                }
            }
        },
        "PaymentStatusResult": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "isPending": {"type": "boolean"},
                "isCancelled": {"type": "boolean"},
                "message": {"type": "string"}
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
