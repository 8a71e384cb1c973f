// Package api holds the HTTP contract of the gateway: the OpenAPI document
// and the request and response bodies.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/swaggo/swag"
)

const docTemplate = `{
  "openapi": "3.0.3",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "paths": {
    "/checkout": {
      "post": {
        "operationId": "checkout",
        "summary": "Start a PayToday payment for an order",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {"$ref": "#/components/schemas/CheckoutRequest"}
            }
          }
        },
        "responses": {
          "201": {"description": "Payment started", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/CheckoutEnvelope"}}}},
          "400": {"$ref": "#/components/responses/Error"},
          "409": {"$ref": "#/components/responses/Error"},
          "502": {"$ref": "#/components/responses/Error"},
          "503": {"$ref": "#/components/responses/Error"}
        }
      }
    },
    "/orders/{order_id}/payment-status": {
      "get": {
        "operationId": "paymentStatus",
        "summary": "Client short-poll of the payment status",
        "parameters": [
          {"$ref": "#/components/parameters/OrderID"},
          {"name": "key", "in": "query", "required": true, "schema": {"type": "string", "minLength": 1}}
        ],
        "responses": {
          "200": {"description": "Current status", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/PaymentStatusEnvelope"}}}},
          "400": {"$ref": "#/components/responses/Error"},
          "403": {"$ref": "#/components/responses/Error"},
          "404": {"$ref": "#/components/responses/Error"}
        }
      }
    },
    "/admin/orders/{order_id}/check": {
      "post": {
        "operationId": "checkOrder",
        "summary": "Run one status check for an order",
        "parameters": [
          {"$ref": "#/components/parameters/OrderID"}
        ],
        "responses": {
          "200": {"description": "Check outcome", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/CheckEnvelope"}}}},
          "401": {"$ref": "#/components/responses/Error"},
          "404": {"$ref": "#/components/responses/Error"}
        }
      }
    },
    "/paytoday/return": {
      "get": {
        "operationId": "paytodayReturn",
        "summary": "Redirect target after the payer leaves PayToday",
        "parameters": [
          {"name": "status", "in": "query", "schema": {"type": "string"}},
          {"name": "reference", "in": "query", "schema": {"type": "string"}},
          {"name": "invoice_number", "in": "query", "schema": {"type": "string"}},
          {"name": "reference_number", "in": "query", "schema": {"type": "string"}}
        ],
        "responses": {
          "302": {"description": "Redirect to the storefront"},
          "400": {"$ref": "#/components/responses/Error"},
          "404": {"$ref": "#/components/responses/Error"}
        }
      }
    },
    "/health": {
      "get": {
        "operationId": "health",
        "responses": {
          "200": {"description": "Service is up", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Health"}}}},
          "503": {"description": "A dependency is down", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Health"}}}}
        }
      }
    }
  },
  "components": {
    "parameters": {
      "OrderID": {"name": "order_id", "in": "path", "required": true, "schema": {"type": "integer", "format": "int64", "minimum": 1}}
    },
    "responses": {
      "Error": {"description": "Error", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/ErrorResponse"}}}}
    },
    "schemas": {
      "Customer": {
        "type": "object",
        "properties": {
          "first_name": {"type": "string"},
          "last_name": {"type": "string"},
          "email": {"type": "string"},
          "phone": {"type": "string"}
        }
      },
      "CheckoutRequest": {
        "type": "object",
        "required": ["order_id", "amount"],
        "properties": {
          "order_id": {"type": "integer", "format": "int64", "minimum": 1},
          "amount": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]{1,2})?$"},
          "invoice_number": {"type": "string"},
          "return_url": {"type": "string"},
          "customer": {"$ref": "#/components/schemas/Customer"}
        }
      },
      "CheckoutResult": {
        "type": "object",
        "properties": {
          "order_id": {"type": "integer", "format": "int64"},
          "redirect_url": {"type": "string"},
          "access_key": {"type": "string"},
          "token_provenance": {"type": "string", "enum": ["explicit", "derived_from_url", ""]},
          "poll_interval_seconds": {"type": "integer"},
          "poll_timeout_seconds": {"type": "integer"}
        }
      },
      "CheckoutEnvelope": {
        "type": "object",
        "properties": {
          "success": {"type": "boolean"},
          "data": {"$ref": "#/components/schemas/CheckoutResult"}
        }
      },
      "PaymentStatus": {
        "type": "object",
        "properties": {
          "completed": {"type": "boolean"},
          "failed": {"type": "boolean"},
          "pending": {"type": "boolean"},
          "redirect_url": {"type": "string"},
          "raw_status": {"type": "string"},
          "retry_after_seconds": {"type": "integer"},
          "poll_until": {"type": "string", "format": "date-time"}
        }
      },
      "PaymentStatusEnvelope": {
        "type": "object",
        "properties": {
          "success": {"type": "boolean"},
          "data": {"$ref": "#/components/schemas/PaymentStatus"}
        }
      },
      "CheckResult": {
        "type": "object",
        "properties": {
          "order_id": {"type": "integer", "format": "int64"},
          "outcome": {"type": "string"},
          "order_status": {"type": "string"},
          "transaction_status": {"type": "string"},
          "raw_status": {"type": "string"},
          "applied": {"type": "boolean"}
        }
      },
      "CheckEnvelope": {
        "type": "object",
        "properties": {
          "success": {"type": "boolean"},
          "data": {"$ref": "#/components/schemas/CheckResult"}
        }
      },
      "Health": {
        "type": "object",
        "properties": {
          "status": {"type": "string"},
          "checks": {"type": "object", "additionalProperties": {"type": "string"}}
        }
      },
      "ErrorResponse": {
        "type": "object",
        "properties": {
          "success": {"type": "boolean"},
          "error": {
            "type": "object",
            "properties": {
              "code": {"type": "string"},
              "message": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

// SwaggerInfo holds the exported document metadata.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Title:            "PayToday Gateway API",
	Description:      "Confirms PayToday payments for storefront orders.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Document returns the rendered OpenAPI document.
func Document() string {
	return SwaggerInfo.ReadDoc()
}

// LoadSpec parses and validates the rendered document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(Document()))
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
}

// RegisterDocsRoutes serves the document at /docs/openapi.json.
func RegisterDocsRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /docs/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})
}
