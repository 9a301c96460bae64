// Package classifier tags job records with position types (contract, W2,
// C2C and so on) using a language model.
//
// It is optional. Enrich errors are reported to the caller, which logs and
// ignores them so a slow or missing model never costs a record.
package classifier
