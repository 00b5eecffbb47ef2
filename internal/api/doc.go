// Package api provides the certificate back-office REST API.
//
//	@title						Certificate Back-Office API
//	@version					1.0
//	@description				Request, track, and download background-check certificates
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
package api
