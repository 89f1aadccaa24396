// Package schema validates workspace documents against embedded JSON
// Schemas: project.json records, cdk.json files and app generator options.
// Each schema is compiled once on first use.
package schema
