// Package api exposes BidGrid over HTTP.
//
// Every route lives under /api/v1 and answers with a JSON envelope:
//
//	{"statusCode": 200, "data": {...}, "message": "...", "success": true}
//
// Failures use the same shape with success false and an errors array.
// Handlers return errors; the router converts them with toAPIError so
// storage, auth and validation sentinels map to consistent status codes.
package api
