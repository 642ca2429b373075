// Package search joins the ANN index and the relational store into
// text-query similarity search over the library.
package search
