// Package docs PanelGrid API documentation
package docs

// Swagger documentation info
// @title PanelGrid API
// @version 1.0
// @description Central API documentation - For all PanelGrid microservices
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.panelgrid.dev/support
// @contact.email support@panelgrid.dev

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

// Auth Service Endpoints
// @tag.name auth-password
// @tag.description Password reset token issuing and credential replacement

// Activity Service Endpoints
// @tag.name activity
// @tag.description Audit activity log recording, querying and rendering
