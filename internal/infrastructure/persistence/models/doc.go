// Package models contains the GORM models of the synchronization tables.
// Repositories convert between these models and reconciliation domain types;
// the domain package carries no ORM tags.
package models
