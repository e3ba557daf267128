// Package inference submits dataset images to a local describe endpoint in
// bounded batches and reports each answer next to the dataset label.
package inference
