// Package persistence stores the objects and states a control point
// materializes for discovered UPnP devices.
//
// Identifiers are hierarchical and dot separated, for example
// upnp.<udn>.AVTransport.TransportState. A state carries its value as a
// string together with an ack flag: ack=true values were reported by the
// device, ack=false values are commands written by a user that the
// controller service still has to carry out.
//
// MemoryStore keeps everything in process and can snapshot itself to a JSON
// file. RedisStore keeps objects and states in Redis and broadcasts changes
// over Redis Pub/Sub so several controller instances share one view.
package persistence
