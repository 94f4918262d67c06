// Package utils converts loosely typed column values read from legacy schemas.
// Legacy databases disagree on how they store ids and amounts, so values are
// scanned as any and normalised here.
package utils
