// Package types defines the Idea entity, the IdeaStore and ChangeFeed
// interfaces, filter options, configuration, and the standard errors shared
// by every Ideas backend.
package types
