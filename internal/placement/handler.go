package placement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/robustmq/robustmq-go/internal/rpcpool"
)

// Handler implements the placement center's single RPC entry point:
// every Envelope arrives through rpcpool's shared Call procedure and is
// dispatched here by (Service, Interface). The wire messages in
// internal/rpcpool carry opaque []byte blobs for list/catalog payloads
// (mirroring the source's bincode-serialized-then-boxed convention);
// this handler (de)serializes them to/from the placement package's own
// domain types at the boundary. None of these requests carry a cluster
// name, so node/heartbeat operations are scoped to the server's own
// configured ClusterName — this placement center instance serves one
// cluster. Journal-service shard/segment writes flow through the same
// Catalog/FSM path as the MQTT catalog, so they replicate and forward to
// the leader identically.
type Handler struct {
	server  *Server
	catalog *Catalog
	logger  *slog.Logger
}

// NewHandler wires an RPC handler around server.
func NewHandler(server *Server, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{server: server, catalog: NewCatalog(server), logger: logger}
}

// Handle is the rpcpool.Handler function registered with NewCallHandler.
func (h *Handler) Handle(ctx context.Context, req *rpcpool.Envelope) (*rpcpool.Envelope, error) {
	if err := h.server.ForwardGuard().Check(string(req.Interface), func(s string) bool {
		return rpcpool.ShouldForwardToLeader(rpcpool.Interface(s))
	}); err != nil {
		return nil, err
	}

	switch req.Service {
	case rpcpool.ServicePlacement:
		return h.handlePlacement(ctx, req)
	case rpcpool.ServiceJournal:
		return h.handleJournal(ctx, req)
	case rpcpool.ServiceMqtt:
		return h.handleMqtt(ctx, req)
	case rpcpool.ServiceKv:
		return h.handleKv(ctx, req)
	default:
		return nil, fmt.Errorf("placement handler: unsupported service %q", req.Service)
	}
}

func reply(service rpcpool.Service, iface rpcpool.Interface, v any) (*rpcpool.Envelope, error) {
	payload, err := rpcpool.EncodePayload(v)
	if err != nil {
		return nil, err
	}
	return &rpcpool.Envelope{Service: service, Interface: iface, Payload: payload}, nil
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	err := rpcpool.DecodePayload(raw, &v)
	return v, err
}

func (h *Handler) clusterName() string {
	return h.server.config.ClusterName
}

func (h *Handler) handlePlacement(ctx context.Context, req *rpcpool.Envelope) (*rpcpool.Envelope, error) {
	switch req.Interface {
	case rpcpool.InterfaceClusterStatus:
		nodes := h.server.Cache().ListBrokerNodes(h.clusterName())
		nodeIDs := make([]string, 0, len(nodes))
		for _, n := range nodes {
			nodeIDs = append(nodeIDs, n.NodeID)
		}
		return reply(req.Service, req.Interface, rpcpool.ClusterStatusReply{
			LeaderID: h.server.LeaderID(),
			NodeIDs:  nodeIDs,
		})

	case rpcpool.InterfaceListNode:
		nodes := h.server.Cache().ListBrokerNodes(h.clusterName())
		out := make([]rpcpool.NodeInfo, 0, len(nodes))
		for _, n := range nodes {
			out = append(out, rpcpool.NodeInfo{NodeID: n.NodeID, RPCAddr: n.NodeInnerAddr, ExtendInfo: n.ExtendInfo})
		}
		return reply(req.Service, req.Interface, rpcpool.ListNodeReply{Nodes: out})

	case rpcpool.InterfaceRegisterNode:
		in, err := decode[rpcpool.RegisterNodeRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		node := BrokerNode{ClusterName: h.clusterName(), NodeID: in.Node.NodeID, NodeInnerAddr: in.Node.RPCAddr, ExtendInfo: in.Node.ExtendInfo}
		if err := h.catalog.RegisterNode(node); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceUnRegisterNode:
		in, err := decode[rpcpool.UnRegisterNodeRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if err := h.catalog.UnRegisterNode(h.clusterName(), in.NodeID); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceHeartbeat:
		in, err := decode[rpcpool.HeartbeatRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if err := h.catalog.Heartbeat(h.clusterName(), in.NodeID); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	default:
		return nil, fmt.Errorf("placement handler: unsupported placement interface %q", req.Interface)
	}
}

func (h *Handler) handleJournal(ctx context.Context, req *rpcpool.Envelope) (*rpcpool.Envelope, error) {
	switch req.Interface {
	case rpcpool.InterfaceCreateShard:
		in, err := decode[rpcpool.CreateShardRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		shard := JournalShard{Namespace: in.Namespace, ShardName: in.ShardName}
		replicas, err := h.catalog.CreateShard(shard, in.Replicas)
		if err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, rpcpool.CreateShardReply{ReplicaNodeIDs: replicas})

	case rpcpool.InterfaceDeleteShard:
		in, err := decode[rpcpool.DeleteShardRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if err := h.catalog.DeleteShard(JournalShard{Namespace: in.Namespace, ShardName: in.ShardName}); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceCreateSegment:
		in, err := decode[rpcpool.CreateSegmentRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		shard := JournalShard{Namespace: in.Namespace, ShardName: in.ShardName}
		replicas := h.server.Cache().ShardMap().GetReplicas(shard)
		if len(replicas) == 0 {
			return nil, fmt.Errorf("placement handler: shard %s/%s has no assigned replicas", in.Namespace, in.ShardName)
		}
		segmentSeq := int64(len(h.server.Cache().ListSegments(in.Namespace, in.ShardName)))
		if err := h.catalog.CreateSegment(shard, segmentSeq, replicas, replicas[0]); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, rpcpool.CreateSegmentReply{SegmentID: segmentSeq})

	case rpcpool.InterfaceDeleteSegment:
		in, err := decode[rpcpool.DeleteSegmentRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if err := h.catalog.DeleteSegment(in.Namespace, in.ShardName, in.SegmentID); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	default:
		return nil, fmt.Errorf("placement handler: unsupported journal interface %q", req.Interface)
	}
}

func (h *Handler) handleMqtt(ctx context.Context, req *rpcpool.Envelope) (*rpcpool.Envelope, error) {
	switch req.Interface {
	case rpcpool.InterfaceCreateUser:
		in, err := decode[rpcpool.CreateUserRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if err := h.catalog.CreateUser(MqttUser{Username: in.Username, PasswordHash: in.Password, IsSuperuser: in.IsSuperuser}); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceDeleteUser:
		in, err := decode[rpcpool.DeleteUserRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if err := h.catalog.DeleteUser(in.Username); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceListUser:
		users := h.server.Cache().ListUsers()
		out := make([][]byte, 0, len(users))
		for _, u := range users {
			b, err := json.Marshal(u)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return reply(req.Service, req.Interface, rpcpool.ListUserReply{Users: out})

	case rpcpool.InterfaceCreateTopic:
		in, err := decode[rpcpool.CreateTopicRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if err := h.catalog.CreateTopic(MqttTopic{TopicName: in.TopicName}); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceDeleteTopic:
		in, err := decode[rpcpool.DeleteTopicRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if err := h.catalog.DeleteTopic(in.TopicName); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceListTopic:
		topics := h.server.Cache().ListTopics()
		out := make([][]byte, 0, len(topics))
		for _, t := range topics {
			if in, _ := decode[rpcpool.ListTopicRequest](req.Payload); in.TopicName != "" && in.TopicName != t.TopicName {
				continue
			}
			b, err := json.Marshal(t)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return reply(req.Service, req.Interface, rpcpool.ListTopicReply{Topics: out})

	case rpcpool.InterfaceSetTopicRetainMessage:
		in, err := decode[rpcpool.SetTopicRetainMessageRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		topic, _ := h.server.Cache().GetTopic(in.TopicName)
		topic.TopicName = in.TopicName
		if in.Remove {
			topic.RetainMessage = nil
		} else {
			topic.RetainMessage = in.RetainMessage
		}
		if err := h.catalog.CreateTopic(topic); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceCreateSession:
		in, err := decode[rpcpool.CreateSessionRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		var session MqttSession
		if err := json.Unmarshal(in.Session, &session); err != nil {
			return nil, err
		}
		session.ClientID = in.ClientID
		if err := h.catalog.CreateSession(session); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceUpdateSession:
		in, err := decode[rpcpool.UpdateSessionRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		session, _ := h.server.Cache().GetSession(in.ClientID)
		session.ClientID = in.ClientID
		session.ConnectionID = in.ConnectionID
		session.BrokerID = in.BrokerID
		session.ReconnectTime = in.ReconnectTime
		session.DistinctTime = in.DistinctTime
		if err := h.catalog.UpdateSession(session); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceDeleteSession:
		in, err := decode[rpcpool.DeleteSessionRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if err := h.catalog.DeleteSession(in.ClientID); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceListSession:
		sessions := h.server.Cache().ListSessions()
		out := make([][]byte, 0, len(sessions))
		for _, s := range sessions {
			b, err := json.Marshal(s)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return reply(req.Service, req.Interface, rpcpool.ListSessionReply{Sessions: out})

	case rpcpool.InterfaceSaveLastWillMessage:
		in, err := decode[rpcpool.SaveLastWillMessageRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		session, _ := h.server.Cache().GetSession(in.ClientID)
		session.ClientID = in.ClientID
		session.LastWill = in.LastWill
		if err := h.catalog.UpdateSession(session); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceCreateAcl:
		in, err := decode[rpcpool.CreateAclRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		var acl MqttAcl
		if err := json.Unmarshal(in.Acl, &acl); err != nil {
			return nil, err
		}
		if err := h.catalog.CreateAcl(aclKey(acl), acl); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceDeleteAcl:
		in, err := decode[rpcpool.DeleteAclRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		var acl MqttAcl
		if err := json.Unmarshal(in.Acl, &acl); err != nil {
			return nil, err
		}
		if err := h.catalog.DeleteAcl(aclKey(acl)); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceListAcl:
		acls := h.server.Cache().ListAcls()
		out := make([][]byte, 0, len(acls))
		for _, a := range acls {
			b, err := json.Marshal(a)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return reply(req.Service, req.Interface, rpcpool.ListAclReply{Acls: out})

	case rpcpool.InterfaceCreateBlackList:
		in, err := decode[rpcpool.CreateBlackListRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		var bl MqttBlackList
		if err := json.Unmarshal(in.BlackList, &bl); err != nil {
			return nil, err
		}
		if err := h.catalog.CreateBlackList(blackListKey(bl), bl); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceDeleteBlackList:
		in, err := decode[rpcpool.DeleteBlackListRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		var bl MqttBlackList
		if err := json.Unmarshal(in.BlackList, &bl); err != nil {
			return nil, err
		}
		if err := h.catalog.DeleteBlackList(blackListKey(bl)); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceListBlackList:
		blackLists := h.server.Cache().ListBlackLists()
		out := make([][]byte, 0, len(blackLists))
		for _, bl := range blackLists {
			b, err := json.Marshal(bl)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
		}
		return reply(req.Service, req.Interface, rpcpool.ListBlackListReply{BlackLists: out})

	case rpcpool.InterfaceSetIdempotentData:
		in, err := decode[rpcpool.SetIdempotentDataRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if h.server.Idempotent() == nil {
			return nil, fmt.Errorf("placement handler: idempotent store not configured")
		}
		if err := h.server.Idempotent().Set(ctx, h.clusterName(), in.ProducerID, in.SeqNum); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceExistsIdempotentData:
		in, err := decode[rpcpool.ExistsIdempotentDataRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if h.server.Idempotent() == nil {
			return nil, fmt.Errorf("placement handler: idempotent store not configured")
		}
		exists, err := h.server.Idempotent().Exists(ctx, h.clusterName(), in.ProducerID, in.SeqNum)
		if err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, rpcpool.ExistsIdempotentDataReply{Exists: exists})

	case rpcpool.InterfaceDeleteIdempotentData:
		in, err := decode[rpcpool.DeleteIdempotentDataRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if h.server.Idempotent() == nil {
			return nil, fmt.Errorf("placement handler: idempotent store not configured")
		}
		if err := h.server.Idempotent().Delete(ctx, h.clusterName(), in.ProducerID, in.SeqNum); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	default:
		return nil, fmt.Errorf("placement handler: unsupported mqtt interface %q", req.Interface)
	}
}

func (h *Handler) handleKv(ctx context.Context, req *rpcpool.Envelope) (*rpcpool.Envelope, error) {
	engine := h.server.config.IdempotentStore
	if engine == nil {
		return nil, fmt.Errorf("placement handler: no kv engine configured")
	}

	switch req.Interface {
	case rpcpool.InterfaceSet:
		in, err := decode[rpcpool.SetRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if err := engine.Set(ctx, []byte(in.Key), in.Value); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceGet:
		in, err := decode[rpcpool.GetRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		value, err := engine.Get(ctx, []byte(in.Key))
		if err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, rpcpool.GetReply{Value: value})

	case rpcpool.InterfaceDelete:
		in, err := decode[rpcpool.DeleteRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		if err := engine.Delete(ctx, []byte(in.Key)); err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, struct{}{})

	case rpcpool.InterfaceExists:
		in, err := decode[rpcpool.ExistsRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		_, err = engine.Get(ctx, []byte(in.Key))
		return reply(req.Service, req.Interface, rpcpool.ExistsReply{Exists: err == nil})

	default:
		return nil, fmt.Errorf("placement handler: unsupported kv interface %q", req.Interface)
	}
}

func aclKey(a MqttAcl) string {
	return fmt.Sprintf("%s/%s/%s", a.ResourceType, a.ResourceName, a.Username)
}

func blackListKey(bl MqttBlackList) string {
	return fmt.Sprintf("%s/%s", bl.BlackListType, bl.ResourceName)
}
