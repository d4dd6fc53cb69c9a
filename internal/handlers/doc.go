// Package handlers exposes the asset index over HTTP.
//
// Read endpoints take the same listing parameters (limit, album,
// subalbums, hidden, filter, media_type) and answer 400 with a JSON
// {"error": ...} body when one is invalid:
//   - GET /api/assets: one cursor page of the listing
//   - GET /api/viewport: the first page plus the listing total
//   - GET /api/geometry: the layout projection of the listing
//   - GET /api/asset/{rel}, /api/albums, /api/stats
//
// Writes are limited to favorites:
//   - POST /api/favorites/sync: replace the favorites set
//   - PUT /api/favorites/{rel}: flag one row
//
// /health, /livez, /version and /metrics serve operations.
package handlers
