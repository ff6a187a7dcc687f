package domain

// KeyPrefix namespaces every key this service writes to a shared valkey/redis.
const KeyPrefix = "qaindex:"

// DefaultCollectionName is the collection the PCAF motor vehicle dataset loads into.
const DefaultCollectionName = "pcaf_motor_vehicle_qa"
