// Package mongo implements the storage ports on MongoDB.
//
// Collections:
//
//   - documents: unique on (connectionId, id)
//   - syncs: keyed by _id, with a partial unique index allowing one
//     in-progress sync per connection
//   - job_steps: unique on (jobId, stepId)
//   - connections: keyed by _id
package mongo
