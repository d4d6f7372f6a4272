// Package swagger registers the OpenAPI document served under /swagger.
package swagger

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
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/v1/proposals": {
            "get": {
                "tags": ["proposals"],
                "summary": "List proposals of an organization",
                "parameters": [
                    {"type": "string", "name": "organization_id", "in": "query", "required": true},
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ListProposalsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "post": {
                "tags": ["proposals"],
                "summary": "Create a draft proposal",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateProposalRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ProposalResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/proposals/{proposal_id}/open": {
            "post": {
                "tags": ["proposals"],
                "summary": "Open voting",
                "parameters": [{"type": "string", "name": "proposal_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProposalResponse"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/proposals/{proposal_id}/votes": {
            "post": {
                "tags": ["votes"],
                "summary": "Cast the caller's vote",
                "parameters": [
                    {"type": "string", "name": "proposal_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CastVoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/VoteResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/proposals/{proposal_id}/results": {
            "get": {
                "tags": ["results"],
                "summary": "Live tally, or the frozen snapshot once finalized",
                "parameters": [{"type": "string", "name": "proposal_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultSnapshotResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "CreateProposalRequest": {
            "type": "object",
            "properties": {
                "organization_id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "content_hash": {"type": "string"},
                "start_at": {"type": "string", "format": "date-time"},
                "end_at": {"type": "string", "format": "date-time"},
                "quorum_requirement_bps": {"type": "integer"}
            }
        },
        "ProposalResponse": {
            "type": "object",
            "properties": {
                "proposal_id": {"type": "string"},
                "organization_id": {"type": "string"},
                "title": {"type": "string"},
                "status": {"type": "string", "enum": ["draft", "open", "closed", "finalized"]},
                "eligible_voting_power": {"type": "string"},
                "version": {"type": "integer"}
            }
        },
        "ListProposalsResponse": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/ProposalResponse"}}}
        },
        "CastVoteRequest": {
            "type": "object",
            "properties": {"option_id": {"type": "string"}}
        },
        "VoteResponse": {
            "type": "object",
            "properties": {
                "vote_id": {"type": "string"},
                "proposal_id": {"type": "string"},
                "user_id": {"type": "string"},
                "option_id": {"type": "string"},
                "voting_power": {"type": "string"},
                "cast_at": {"type": "string", "format": "date-time"}
            }
        },
        "ResultSnapshotResponse": {
            "type": "object",
            "properties": {
                "proposal_id": {"type": "string"},
                "winning_option_id": {"type": "string"},
                "tied": {"type": "boolean"},
                "total_votes_cast": {"type": "integer"},
                "total_voting_power_cast": {"type": "string"},
                "quorum_met": {"type": "boolean"},
                "results_hash": {"type": "string"},
                "frozen": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "fangov proposal engine API",
	Description:      "Proposal lifecycle, weighted voting and result snapshots.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
