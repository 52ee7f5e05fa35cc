// Package catalog records captured media in a SQLite database: one row per
// recorded video or saved photo, keyed by the target it belongs to.
//
// Schema changes ship as numbered files under migrations/ and are applied
// in order on Open.
package catalog
