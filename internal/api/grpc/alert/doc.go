// Package alert implements the gRPC transport for the alert service.
//
// The service descriptor is declared by hand and every message is a
// google.protobuf.Struct, so no generated code is needed. The server adapts
// requests to the business-service interface and renders session snapshots.
package alert
