package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/robustmq/robustmq-go/internal/rpcpool"
)

// Handler implements the journal engine's data-plane RPC entry point:
// WriteRecord and ReadRecords, served directly by the node that holds a
// shard's active segment replica rather than routed through the
// placement center's FSM. Shard/segment ownership changes still flow
// through the placement center (internal/placement.Handler's
// ServiceJournal case); this handler only ever touches the local
// segment files through Store.
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler wires an RPC handler around store.
func NewHandler(store *Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Handle is the rpcpool.Handler function registered with NewCallHandler.
func (h *Handler) Handle(ctx context.Context, req *rpcpool.Envelope) (*rpcpool.Envelope, error) {
	if req.Service != rpcpool.ServiceJournalData {
		return nil, fmt.Errorf("journal handler: unsupported service %q", req.Service)
	}

	switch req.Interface {
	case rpcpool.InterfaceWriteRecord:
		in, err := decode[rpcpool.WriteRecordRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		offset, err := h.store.Append(ctx, in.Namespace, in.ShardName, in.ProducerID, in.Key, in.Value)
		if err != nil {
			return nil, err
		}
		return reply(req.Service, req.Interface, rpcpool.WriteRecordReply{Offset: offset})

	case rpcpool.InterfaceReadRecords:
		in, err := decode[rpcpool.ReadRecordsRequest](req.Payload)
		if err != nil {
			return nil, err
		}
		recs, err := h.store.ReadFrom(ctx, in.Namespace, in.ShardName, in.SegmentSeq, in.FromOffset)
		if err != nil {
			return nil, err
		}
		out := make([]rpcpool.JournalRecord, len(recs))
		for i, rec := range recs {
			out[i] = rpcpool.JournalRecord{
				Offset:     rec.Offset,
				Timestamp:  rec.Timestamp,
				ProducerID: rec.ProducerID,
				Key:        rec.Key,
				Value:      rec.Value,
			}
		}
		return reply(req.Service, req.Interface, rpcpool.ReadRecordsReply{Records: out})

	default:
		return nil, fmt.Errorf("journal handler: unsupported interface %q", req.Interface)
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
