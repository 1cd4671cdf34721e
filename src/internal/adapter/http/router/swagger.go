package router

import (
	"fmt"
	"net/http"
)

func registerSwaggerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})

	mux.HandleFunc("/swagger/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, swaggerHTML, "/swagger/openapi.json")
	})

	mux.HandleFunc("/swagger/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(openAPI))
	})
}

const swaggerHTML = `<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Stable Wallet API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function() {
      window.ui = SwaggerUIBundle({
        url: "%s",
        dom_id: "#swagger-ui"
      });
    };
  </script>
</body>
</html>`

const openAPI = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Stable Wallet API",
    "version": "1.0.0"
  },
  "paths": {
    "/register": {
      "post": {
        "summary": "Register an account",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["key", "password"],
                "properties": {
                  "key": {"type": "string"},
                  "password": {"type": "string"},
                  "phoneNumbers": {"type": "array", "maxItems": 3, "items": {"type": "string"}}
                }
              }
            }
          }
        },
        "responses": {
          "201": {"description": "Registered"},
          "400": {"description": "Validation error"},
          "409": {"description": "Key already registered"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/login": {
      "post": {
        "summary": "Login and receive a bearer token",
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["key", "password"],
                "properties": {
                  "key": {"type": "string"},
                  "password": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Token issued"},
          "400": {"description": "Validation error"},
          "401": {"description": "Invalid key or password"},
          "429": {"description": "Too many attempts"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/account": {
      "get": {
        "summary": "Get the caller's account summary",
        "security": [
          {
            "BearerAuth": []
          }
        ],
        "responses": {
          "200": {"description": "Account fetched"},
          "404": {"description": "Account not found"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/phone-numbers": {
      "post": {
        "summary": "Add a phone number",
        "security": [
          {
            "BearerAuth": []
          }
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["phoneNumber"],
                "properties": {
                  "phoneNumber": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Phone number added"},
          "400": {"description": "Validation error"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      },
      "delete": {
        "summary": "Remove a phone number",
        "security": [
          {
            "BearerAuth": []
          }
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["phoneNumber"],
                "properties": {
                  "phoneNumber": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Phone number removed"},
          "400": {"description": "Validation error"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/deposit": {
      "post": {
        "summary": "Deposit fiat through a registered phone number",
        "security": [
          {
            "BearerAuth": []
          }
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["phoneNumber", "amount"],
                "properties": {
                  "phoneNumber": {"type": "string"},
                  "amount": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Deposited"},
          "400": {"description": "Validation error"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/convert": {
      "post": {
        "summary": "Convert fiat to stable units",
        "security": [
          {
            "BearerAuth": []
          }
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": [],
                "properties": {
                  "amount": {"type": "string"},
                  "all": {"type": "boolean"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Converted"},
          "400": {"description": "Validation error"},
          "422": {"description": "Insufficient balance"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/withdraw": {
      "post": {
        "summary": "Withdraw stable units to a registered phone number",
        "security": [
          {
            "BearerAuth": []
          }
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["phoneNumber", "amount"],
                "properties": {
                  "phoneNumber": {"type": "string"},
                  "amount": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Withdrawal recorded"},
          "400": {"description": "Validation error"},
          "422": {"description": "Insufficient balance"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/transfer": {
      "post": {
        "summary": "Transfer stable units to another account",
        "security": [
          {
            "BearerAuth": []
          }
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["receiver", "amount"],
                "properties": {
                  "receiver": {"type": "string"},
                  "amount": {"type": "string"}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Transfer completed"},
          "202": {"description": "Transfer pending validation"},
          "400": {"description": "Validation error"},
          "404": {"description": "Account not found"},
          "422": {"description": "Insufficient balance"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/transactions": {
      "get": {
        "summary": "List transactions involving the caller",
        "security": [
          {
            "BearerAuth": []
          }
        ],
        "responses": {
          "200": {"description": "Transactions fetched"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/admin/validate-transaction": {
      "post": {
        "summary": "Validate a pending transaction",
        "security": [
          {
            "BasicAuth": []
          }
        ],
        "requestBody": {
          "required": true,
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "required": ["index"],
                "properties": {
                  "index": {"type": "integer", "minimum": 0}
                }
              }
            }
          }
        },
        "responses": {
          "200": {"description": "Transaction resolved"},
          "400": {"description": "Validation error"},
          "404": {"description": "Transaction not found"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/admin/transactions": {
      "get": {
        "summary": "List all transactions",
        "security": [
          {
            "BasicAuth": []
          }
        ],
        "parameters": [
          {
            "name": "key",
            "in": "query",
            "required": false,
            "schema": {"type": "string"}
          }
        ],
        "responses": {
          "200": {"description": "Transactions fetched"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/admin/accounts": {
      "delete": {
        "summary": "Remove an account",
        "security": [
          {
            "BasicAuth": []
          }
        ],
        "parameters": [
          {
            "name": "key",
            "in": "query",
            "required": true,
            "schema": {"type": "string"}
          }
        ],
        "responses": {
          "200": {"description": "Account removed"},
          "400": {"description": "Validation error"},
          "404": {"description": "Account not found"},
          "401": {"description": "Unauthorized"},
          "500": {"description": "Server error"}
        }
      }
    },
    "/healthz": {
      "get": {
        "summary": "Ledger health",
        "responses": {
          "200": {"description": "Healthy"},
          "503": {"description": "Ledger unavailable"}
        }
      }
    }
  },
  "components": {
    "securitySchemes": {
      "BasicAuth": {
        "type": "http",
        "scheme": "basic"
      },
      "BearerAuth": {
        "type": "http",
        "scheme": "bearer",
        "bearerFormat": "JWT"
      }
    }
  }
}`
