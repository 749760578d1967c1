package redis

// Redis key naming conventions for scheduler data.
// All keys are prefixed with "dataexport:" to avoid collisions.

const keyPrefix = "dataexport:"

// ── Trigger keys ──

// triggerKey returns the key for a trigger entity: dataexport:trigger:{key}
func triggerKey(key string) string { return keyPrefix + "trigger:" + key }

// identKey returns the Set key tracking trigger keys under one identity:
// dataexport:ident:{group}/{name}
func identKey(ident string) string { return keyPrefix + "ident:" + ident }

// groupKey returns the Set key tracking trigger keys in one group:
// dataexport:group:{group}
func groupKey(group string) string { return keyPrefix + "group:" + group }

// dueKey is the Sorted Set of enabled trigger keys scored by next run time.
const dueKey = keyPrefix + "due"

// fireLockKey returns the fire lock key for a concrete trigger:
// dataexport:lock:{key}
func fireLockKey(key string) string { return keyPrefix + "lock:" + key }

// ── Cluster keys ──

// workerKey returns the key for a worker entity: dataexport:worker:{id}
func workerKey(id string) string { return keyPrefix + "worker:" + id }

// workerIDsKey is the Set tracking all worker IDs for enumeration.
const workerIDsKey = keyPrefix + "worker_ids"

// leaderKey stores the current leader worker ID.
const leaderKey = keyPrefix + "leader"
