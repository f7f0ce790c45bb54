// Package core defines the shared language of the deckforge system.
//
// This package contains:
//   - Domain entities (Project, Page, Task, Material, ReferenceFile, Settings)
//   - Service interfaces (Store)
//   - Sentinel errors shared by the store, the workflows and the HTTP layer
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
