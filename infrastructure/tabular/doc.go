// Package tabular reads the tab-separated inputs refclust consumes (Mash
// distance tables and ReferenceSeeker result tables) and writes its result
// files (cluster assignments, candidate scores and the chosen reference).
//
// Readers report failures as *domain.ParseError or *domain.MissingResultError
// so callers can tell bad rows from absent inputs. Writers replace their
// destination atomically.
package tabular
