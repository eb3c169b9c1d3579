// Package storage provides blob storage backends for note attachments.
// The S3 backend targets AWS S3 or any S3-compatible store (MinIO); the
// filesystem backend is meant for local development and tests.
package storage
