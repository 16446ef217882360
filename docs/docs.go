// Package docs registers the OpenAPI description served under /swagger.
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
		"/projects": {
			"get": {
				"tags": [
					"projects"
				],
				"summary": "List projects",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "boolean",
						"name": "all",
						"in": "query"
					},
					{
						"type": "string",
						"name": "status",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"$ref": "#/definitions/models.Project"
							}
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			},
			"post": {
				"tags": [
					"projects"
				],
				"summary": "Create a new project",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "project",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.ProjectRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/models.Project"
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/projects/stats": {
			"get": {
				"tags": [
					"projects"
				],
				"summary": "Project statistics",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/projects/order": {
			"put": {
				"tags": [
					"projects"
				],
				"summary": "Reorder active projects",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "order",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.ReorderRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/projects/completed": {
			"delete": {
				"tags": [
					"projects"
				],
				"summary": "Clear completed projects",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/projects/{id}": {
			"get": {
				"tags": [
					"projects"
				],
				"summary": "Get a project by ID",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"format": "uuid",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/models.Project"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			},
			"put": {
				"tags": [
					"projects"
				],
				"summary": "Update a project",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"format": "uuid",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"name": "project",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.ProjectRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			},
			"delete": {
				"tags": [
					"projects"
				],
				"summary": "Delete a project",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"format": "uuid",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/projects/{id}/status": {
			"patch": {
				"tags": [
					"projects"
				],
				"summary": "Change project status",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"format": "uuid",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"name": "status",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handlers.StatusRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					},
					"422": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/projects/{id}/files": {
			"post": {
				"tags": [
					"projects"
				],
				"summary": "Attach files to a project",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"format": "uuid",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "file",
						"name": "files",
						"in": "formData",
						"required": true
					}
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/projects/{id}/files/{fileId}": {
			"delete": {
				"tags": [
					"projects"
				],
				"summary": "Remove an attachment",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"format": "uuid",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"format": "uuid",
						"name": "fileId",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/files/{key}": {
			"get": {
				"tags": [
					"files"
				],
				"summary": "Download an attachment",
				"produces": [
					"application/octet-stream"
				],
				"parameters": [
					{
						"type": "string",
						"name": "key",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "file"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/invoices": {
			"get": {
				"tags": [
					"invoices"
				],
				"summary": "Pending invoice summaries",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/invoices/counters": {
			"get": {
				"tags": [
					"invoices"
				],
				"summary": "Invoice counters",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/invoices/{brand}/pending": {
			"get": {
				"tags": [
					"invoices"
				],
				"summary": "Pending invoice items",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Brand name or slug",
						"name": "brand",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/invoices/{brand}/pending/{projectId}": {
			"delete": {
				"tags": [
					"invoices"
				],
				"summary": "Remove pending invoice item",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Brand name or slug",
						"name": "brand",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"format": "uuid",
						"name": "projectId",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/invoices/{brand}/total": {
			"get": {
				"tags": [
					"invoices"
				],
				"summary": "Pending invoice total",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Brand name or slug",
						"name": "brand",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/invoices/{brand}/export": {
			"post": {
				"tags": [
					"invoices"
				],
				"summary": "Export invoice",
				"produces": [
					"application/pdf"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Brand name or slug",
						"name": "brand",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "file"
						}
					},
					"409": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/invoices/{brand}/history": {
			"get": {
				"tags": [
					"invoices"
				],
				"summary": "Invoice history",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Brand name or slug",
						"name": "brand",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			},
			"delete": {
				"tags": [
					"invoices"
				],
				"summary": "Clear invoice history",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Brand name or slug",
						"name": "brand",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/invoices/{brand}/history/{id}/paid": {
			"patch": {
				"tags": [
					"invoices"
				],
				"summary": "Toggle paid",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Brand name or slug",
						"name": "brand",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"format": "uuid",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		},
		"/invoices/{brand}/history/{id}/document": {
			"get": {
				"tags": [
					"invoices"
				],
				"summary": "Download exported invoice",
				"produces": [
					"application/pdf"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Brand name or slug",
						"name": "brand",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"format": "uuid",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "file"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"type": "object",
							"additionalProperties": true
						}
					}
				}
			}
		}
	},
	"definitions": {
		"handlers.ProjectRequest": {
			"type": "object",
			"properties": {
				"title": {
					"type": "string"
				},
				"brand": {
					"type": "string"
				},
				"type": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"deadline": {
					"type": "string"
				},
				"priority": {
					"type": "integer"
				}
			}
		},
		"handlers.StatusRequest": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				},
				"price": {
					"type": "string"
				}
			}
		},
		"handlers.ReorderRequest": {
			"type": "object",
			"properties": {
				"ids": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		},
		"models.Project": {
			"type": "object",
			"properties": {
				"id": {
					"type": "string"
				},
				"title": {
					"type": "string"
				},
				"brand": {
					"type": "string"
				},
				"type": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"deadline": {
					"type": "string"
				},
				"priority": {
					"type": "integer"
				},
				"status": {
					"type": "string"
				},
				"created_at": {
					"type": "string"
				},
				"files": {
					"type": "array",
					"items": {
						"type": "object"
					}
				}
			}
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/dashboard",
	Schemes:          []string{},
	Title:            "Ops Dashboard API",
	Description:      "Projects, priorities and per-brand invoicing.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
