// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Similarity banding thresholds. A score strictly above the threshold
// belongs to the tier.
const (
	// HighSimilarityThreshold separates high-confidence matches from the rest
	HighSimilarityThreshold = 0.8

	// MediumSimilarityThreshold separates medium-confidence matches from low ones
	MediumSimilarityThreshold = 0.6
)

// Image constants
const (
	// MaxImageSize is the maximum dimension (width or height) of a converted demo image
	MaxImageSize = 1920

	// JPEGQuality is the quality used when re-encoding images
	JPEGQuality = 85
)

// File upload constants
const (
	// MaxUploadSize is the maximum multipart request size in bytes (20MB)
	MaxUploadSize = 20 << 20

	// MaxImageBytes is the maximum size of a single image attachment (10MB)
	MaxImageBytes = 10 << 20
)

// Multipart field names expected by the backend
const (
	FieldFaceImage   = "image"
	FieldAadharImage = "aadhar_image"
	FieldSearchFile  = "file"
)
