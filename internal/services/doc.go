// Package services defines the shared error taxonomy and houses clients for
// external collaborators (embedding sidecar, TMDb, Internet Archive).
package services
