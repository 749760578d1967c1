// Package postgres implements the aggregate store on PostgreSQL using
// pgx/v5. This is the persistent backing strategy: triggers survive
// restarts, and multiple scheduler nodes sharing one database coordinate
// through row-level fire locks and TTL leader election.
package postgres
