// Package rpcpool implements the client side of placement center RPC:
// service/interface classification, a hand-authored JSON connect.Codec
// (no generated protobuf stubs ship in this tree), a leader-cache-aware
// client pool, and the retry/forward dispatch loop every caller goes
// through.
package rpcpool

// Service names one of the placement center's RPC surfaces. Interfaces
// are grouped by service purely for client-pool bookkeeping; the wire
// transport is a single Call procedure shared by all of them.
type Service string

const (
	ServiceKv        Service = "kv"
	ServicePlacement Service = "placement"
	ServiceJournal   Service = "journal"
	ServiceMqtt      Service = "mqtt"
	ServiceOpenRaft  Service = "openraft"

	// ServiceJournalData is served by journal-server nodes themselves
	// (not the placement center): the record append/read data plane
	// local to whichever node leads a shard's active segment.
	ServiceJournalData Service = "journal-data"
)

// Interface names one RPC method within a Service.
type Interface string

const (
	// Kv service.
	InterfaceSet    Interface = "Set"
	InterfaceGet    Interface = "Get"
	InterfaceDelete Interface = "Delete"
	InterfaceExists Interface = "Exists"

	// Placement (inner) service.
	InterfaceClusterStatus     Interface = "ClusterStatus"
	InterfaceListNode          Interface = "ListNode"
	InterfaceRegisterNode      Interface = "RegisterNode"
	InterfaceUnRegisterNode    Interface = "UnRegisterNode"
	InterfaceHeartbeat         Interface = "Heartbeat"
	InterfaceSendRaftMessage   Interface = "SendRaftMessage"
	InterfaceSendRaftConfChange Interface = "SendRaftConfChange"

	// Journal service.
	InterfaceCreateShard   Interface = "CreateShard"
	InterfaceDeleteShard   Interface = "DeleteShard"
	InterfaceCreateSegment Interface = "CreateSegment"
	InterfaceDeleteSegment Interface = "DeleteSegment"

	// Mqtt service.
	InterfaceGetShareSubLeader     Interface = "GetShareSubLeader"
	InterfaceCreateUser            Interface = "CreateUser"
	InterfaceDeleteUser            Interface = "DeleteUser"
	InterfaceListUser              Interface = "ListUser"
	InterfaceCreateTopic           Interface = "CreateTopic"
	InterfaceDeleteTopic           Interface = "DeleteTopic"
	InterfaceListTopic             Interface = "ListTopic"
	InterfaceSetTopicRetainMessage Interface = "SetTopicRetainMessage"
	InterfaceCreateSession         Interface = "CreateSession"
	InterfaceDeleteSession         Interface = "DeleteSession"
	InterfaceListSession           Interface = "ListSession"
	InterfaceUpdateSession         Interface = "UpdateSession"
	InterfaceSaveLastWillMessage   Interface = "SaveLastWillMessage"
	InterfaceSetResourceConfig     Interface = "SetResourceConfig"
	InterfaceGetResourceConfig     Interface = "GetResourceConfig"
	InterfaceDeleteResourceConfig  Interface = "DeleteResourceConfig"
	InterfaceSetIdempotentData     Interface = "SetIdempotentData"
	InterfaceExistsIdempotentData  Interface = "ExistsIdempotentData"
	InterfaceDeleteIdempotentData  Interface = "DeleteIdempotentData"
	InterfaceCreateAcl             Interface = "CreateAcl"
	InterfaceDeleteAcl             Interface = "DeleteAcl"
	InterfaceListAcl               Interface = "ListAcl"
	InterfaceCreateBlackList       Interface = "CreateBlackList"
	InterfaceDeleteBlackList       Interface = "DeleteBlackList"
	InterfaceListBlackList         Interface = "ListBlackList"

	// OpenRaft service.
	InterfaceVote     Interface = "Vote"
	InterfaceAppend   Interface = "Append"
	InterfaceSnapshot Interface = "Snapshot"

	// Journal data-plane service (served by journal-server, not the
	// placement center).
	InterfaceWriteRecord Interface = "WriteRecord"
	InterfaceReadRecords Interface = "ReadRecords"
)

// forwardSet holds the interfaces a non-leader placement center node
// must reject with a forwardable error rather than serve itself: writes
// to raft-replicated cluster state that only the leader may apply.
var forwardSet = map[Interface]bool{
	InterfaceCreateShard:     true,
	InterfaceDeleteShard:     true,
	InterfaceCreateSegment:   true,
	InterfaceDeleteSegment:   true,
	InterfaceCreateUser:      true,
	InterfaceDeleteUser:      true,
	InterfaceCreateTopic:     true,
	InterfaceDeleteTopic:     true,
	InterfaceCreateSession:   true,
	InterfaceDeleteSession:   true,
	InterfaceUpdateSession:   true,
	InterfaceCreateAcl:       true,
	InterfaceDeleteAcl:       true,
	InterfaceCreateBlackList: true,
	InterfaceDeleteBlackList: true,
}

// ShouldForwardToLeader reports whether a non-leader node must reject
// calls to this interface with a forwardable error.
func ShouldForwardToLeader(i Interface) bool {
	return forwardSet[i]
}
