// Package swagger embeds the OpenAPI document of the REST API.
package swagger

import _ "embed"

// Document is the OpenAPI 2.0 document served next to the Swagger UI.
//
//go:embed social.swagger.json
var Document []byte
