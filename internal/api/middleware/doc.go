// Package middleware provides the gin middleware stack of the snippet server.
//
//   - CORS: gin-contrib/cors with configurable origins
//   - RateLimit: per-IP token buckets that forget idle clients
//   - RequestLogger: zap request logging
package middleware
