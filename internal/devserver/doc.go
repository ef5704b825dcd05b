// Package devserver implements an in-memory user administration backend.
//
// It serves the same REST contract as the production backend so the console
// can be developed and demonstrated without one:
//
//	GET   /api/v1/users?current=1&pageSize=10&name=/ada/i
//	GET   /api/v1/users/{id}
//	POST  /api/v1/users
//	PATCH /api/v1/users/{id}
//	GET   /api/v1/companies?current=1&pageSize=100&name=/acme/i
//	GET   /api/v1/roles?current=1&pageSize=100&name=/admin/i
//	POST  /api/v1/files/upload          (multipart "fileUpload", header folder_type)
//	GET   /images/{category}/{file}
//	GET   /api/v1/events                (WebSocket)
//
// # Response Envelope
//
// Every JSON response is wrapped the way the production backend does it:
//
//	{"statusCode": 200, "message": "Fetch list role with paginate", "data": {...}}
//	{"statusCode": 400, "message": ["email must be an email"], "error": "Bad Request"}
//
// Listings return {"meta": {current, pageSize, pages, total}, "result": [...]}.
// The name parameter accepts /pattern/flags regular expressions.
//
// # Events
//
// Creates and updates are published to every WebSocket subscriber as
// events.Event JSON text frames. The server pings subscribers every
// events.PingPeriod.
//
// # Usage Example
//
//	srv, err := devserver.New(&devserver.Config{Port: 8000, Seed: true, Advertise: true})
//	if err != nil {
//	    return err
//	}
//	return srv.Start() // blocks until SIGINT or SIGTERM
//
// # Thread Safety
//
// Store and Hub are safe for concurrent use; each request runs in its own
// goroutine.
package devserver
