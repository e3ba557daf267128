// Package harvest implements the date-partitioned records pass, the artifact
// it produces, and the dependent asset download pass.
//
// A run enumerates lodgement dates, fetches each date as one unit through the
// batch scheduler, writes the merged days as a JSON artifact and, when asked,
// discovers the documents referenced by every item and downloads those not yet
// present in the blob store.
package harvest
