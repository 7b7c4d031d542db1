package config

import "time"

// Timeout constants
const (
	DefaultHTTPTimeout      = 60 * time.Second
	DefaultShutdownTimeout  = 30 * time.Second
	BlobStoreRequestTimeout = 30 * time.Second
	EmailSendTimeout        = 15 * time.Second

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Session timeouts
	SessionMaxAge = 7 * 24 * time.Hour
)

// Upload defaults
const (
	DefaultMaxUploadBytes  int64 = 10 * 1024 * 1024
	DefaultUploadKeyPrefix       = "beta-uploads"
)

// DefaultAllowedUploadTypes are the MIME types accepted for attachments
var DefaultAllowedUploadTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"application/pdf",
}

// Session configuration constants
const (
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionSecure   = false // Set to true in production with HTTPS

	SessionName = "beta-portal-session"
)

// Security configuration constants
const (
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; frame-ancestors 'none';"
)
