// Package services contains the business logic layer between the HTTP
// transport and the analytics core. KPIService orchestrates snapshot
// access, segment filtering and engine invocation; HealthService reports
// liveness and dataset readiness.
package services
