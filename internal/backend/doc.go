// Package backend is an HTTP client for the user administration REST API.
//
// Every response is wrapped in an envelope:
//
//	{"statusCode": 201, "message": "Create a new User", "data": {...}}
//
// and failures carry the backend's reason in "message", which is either a
// string or a list of strings:
//
//	{"statusCode": 400, "message": ["email must be an email"], "error": "Bad Request"}
//
// All methods return *APIError on failure. ServerMessage extracts the text an
// operator should see. GET requests are retried with exponential backoff on
// retryable failures; creates, updates and uploads are sent exactly once.
//
// # Endpoints
//
//	POST  /api/v1/users             CreateUser
//	PATCH /api/v1/users/{id}        UpdateUser
//	GET   /api/v1/users/{id}        GetUser
//	GET   /api/v1/users?...         FetchUsers
//	GET   /api/v1/companies?...     FetchCompanies
//	GET   /api/v1/roles?...         FetchRoles
//	POST  /api/v1/files/upload      UploadSingleFile (multipart "fileUpload", header folder_type)
//
// Uploaded images are served from /images/{category}/{fileName}.
package backend
