// Package storage uploads episode artifacts and the feed document to an
// S3-compatible bucket (Cloudflare R2) and maps object keys to public URLs.
package storage
