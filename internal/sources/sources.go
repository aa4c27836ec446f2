// Package sources defines the granule notification feeds that drive the
// alarm engine.
package sources

// Source is an interface that provides standard methods for the various
// granule notification feeds
type Source interface {
	StartSource() error
	StopSource() error
	SourceName() string
}
