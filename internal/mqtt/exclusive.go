package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// StoredMessage is one record read back from the journal-backed message
// store, decoded enough for the push pipeline to apply its filters and
// build an outgoing PUBLISH.
type StoredMessage struct {
	Offset           uint64
	ClientID         string
	Retain           bool
	ExpiresAt        int64 // unix seconds; 0 = never expires
	FormatIndicator  *byte
	ExpiryInterval   uint32
	ResponseTopic    string
	CorrelationData  []byte
	UserProperties   map[string]string
	ContentType      string
	Payload          []byte
}

// IsExpired reports whether the message's expiry has already elapsed.
func (m StoredMessage) IsExpired() bool {
	return m.ExpiresAt != 0 && now() >= m.ExpiresAt
}

// MessageStore is the message-store contract the delivery core consumes
// (spec.md §4.6): a per-topic, per-consumer-group offset cursor backed
// by the journal engine's segment files (internal/journal.Store), kept
// behind an interface here so this package never imports the journal
// engine directly.
type MessageStore interface {
	ReadFrom(ctx context.Context, topicID, groupID string, fromOffset uint64, maxRecords int) ([]StoredMessage, error)
	CommitOffset(ctx context.Context, topicID, groupID string, offset uint64) error
}

// ConnectionManager delivers a built PUBLISH to a live connection. The
// transport underneath (framing, the socket itself) is an external
// collaborator (spec §1); this package only needs somewhere to hand a
// decoded packet to.
type ConnectionManager interface {
	Deliver(ctx context.Context, connectID uint64, pkt PublishPacket, props *PublishProperties) error
}

const (
	defaultRecordNum = 5
	defaultMaxWait   = 100 * time.Millisecond
	ackRetryWait     = time.Second
)

// ExclusiveDriver drives the spawn/GC scheduler and the per-subscription
// push loop for exclusive-mode subscriptions, grounded end to end on
// `original_source/src/mqtt-broker/src/subscribe/sub_exclusive.rs`
// (start/try_thread_gc/start_push_thread/exclusive_publish_message_qos1/
// qos2), translated from tokio::select! cancellation to Go `select` over
// {stop channel, ack channel, timer} per spec.md §9.
type ExclusiveDriver struct {
	cache  *CacheManager
	subs   *Manager
	store  MessageStore
	conns  ConnectionManager
	retain *RetainStore
	logger *slog.Logger

	recordNum int
	maxWait   time.Duration
}

// NewExclusiveDriver wires a driver around its collaborators.
func NewExclusiveDriver(cache *CacheManager, subs *Manager, store MessageStore, conns ConnectionManager, retain *RetainStore, logger *slog.Logger) *ExclusiveDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExclusiveDriver{
		cache:     cache,
		subs:      subs,
		store:     store,
		conns:     conns,
		retain:    retain,
		logger:    logger,
		recordNum: defaultRecordNum,
		maxWait:   defaultMaxWait,
	}
}

// Start runs the spawn/GC scheduler tick until ctx is cancelled.
func (d *ExclusiveDriver) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		d.spawnPushThreads(ctx)
		d.gcPushThreads()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// spawnPushThreads implements spec.md §4.6's spawn rule: for every
// exclusive subscription not already running a push thread, register a
// stop channel and spawn one.
func (d *ExclusiveDriver) spawnPushThreads(ctx context.Context) {
	for _, sub := range d.subs.ExclusiveSubscriptions() {
		key := sub.ExclusiveKey()
		stop := make(chan struct{})
		if !d.subs.RegisterPushThread(key, stop) {
			continue
		}
		go d.runPushThread(ctx, sub, stop)
	}
}

// gcPushThreads implements spec.md §4.6's GC rule: reap a push thread
// whose subscription has disappeared, once its stop signal is deliverable.
func (d *ExclusiveDriver) gcPushThreads() {
	for key, stop := range d.subs.PushThreads() {
		if d.subs.HasExclusiveSubscription(key) {
			continue
		}
		select {
		case stop <- struct{}{}:
			d.subs.RemovePushThread(key)
		default:
		}
	}
}

// runPushThread is one exclusive subscription's push loop.
func (d *ExclusiveDriver) runPushThread(ctx context.Context, sub Subscriber, stop chan struct{}) {
	defer d.subs.RemovePushThread(sub.ExclusiveKey())

	groupID := fmt.Sprintf("system_sub_%s_%s_%s", sub.ClientID, sub.SubPath, sub.TopicID)
	qos := MinQoS(d.cache.ClusterMaxQoS(), sub.Qos)

	d.sendRetainedPrelude(ctx, sub, qos)

	var offset uint64
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		records, err := d.store.ReadFrom(ctx, sub.TopicID, groupID, offset, d.recordNum)
		if err != nil {
			d.logger.Error("mqtt exclusive push: read failed", "topic_id", sub.TopicID, "group_id", groupID, "error", err)
			if sleepOrStop(d.maxWait, stop) {
				return
			}
			continue
		}
		if len(records) == 0 {
			if sleepOrStop(d.maxWait, stop) {
				return
			}
			continue
		}

		for _, rec := range records {
			offset = rec.Offset + 1

			if rec.IsExpired() {
				d.commit(ctx, sub.TopicID, groupID, offset)
				continue
			}
			if sub.NoLocal && rec.ClientID == sub.ClientID {
				d.commit(ctx, sub.TopicID, groupID, offset)
				continue
			}

			retain := false
			if sub.PreserveRetain {
				retain = rec.Retain
			}
			pkt := PublishPacket{Retain: retain, Topic: sub.TopicName, Payload: rec.Payload}
			props := &PublishProperties{
				PayloadFormatIndicator:  rec.FormatIndicator,
				MessageExpiryInterval:   &rec.ExpiryInterval,
				ResponseTopic:           rec.ResponseTopic,
				CorrelationData:         rec.CorrelationData,
				UserProperties:          rec.UserProperties,
				ContentType:             rec.ContentType,
			}
			if sub.SubscriptionIdentifier != nil {
				props.SubscriptionIdentifiers = []uint32{*sub.SubscriptionIdentifier}
			}

			d.dispatch(ctx, sub, qos, pkt, props, stop)
			d.commit(ctx, sub.TopicID, groupID, offset)
		}
	}
}

func (d *ExclusiveDriver) sendRetainedPrelude(ctx context.Context, sub Subscriber, qos QoS) {
	msg, ok := d.retain.Get(sub.TopicName)
	if !ok {
		return
	}
	pkt := BuildRetainPublish(msg, sub.PreserveRetain)
	pkt.Qos = qos
	if err := d.deliverOnce(ctx, sub.ClientID, pkt, nil); err != nil {
		d.logger.Debug("mqtt exclusive push: retained prelude not delivered", "client_id", sub.ClientID, "topic", sub.TopicName, "error", err)
	}
}

func (d *ExclusiveDriver) commit(ctx context.Context, topicID, groupID string, offset uint64) {
	if err := d.store.CommitOffset(ctx, topicID, groupID, offset); err != nil {
		d.logger.Error("mqtt exclusive push: commit offset failed", "topic_id", topicID, "group_id", groupID, "offset", offset, "error", err)
	}
}

func (d *ExclusiveDriver) deliverOnce(ctx context.Context, clientID string, pkt PublishPacket, props *PublishProperties) error {
	connectID, ok := d.cache.GetConnectID(clientID)
	if !ok {
		return fmt.Errorf("mqtt: client %s has no live connection", clientID)
	}
	return d.conns.Deliver(ctx, connectID, pkt, props)
}

// dispatch routes a built PUBLISH through the QoS-appropriate pipeline.
func (d *ExclusiveDriver) dispatch(ctx context.Context, sub Subscriber, qos QoS, pkt PublishPacket, props *PublishProperties, stop chan struct{}) {
	pkt.Qos = qos
	switch qos {
	case QoSAtMostOnce:
		if err := d.deliverOnce(ctx, sub.ClientID, pkt, props); err != nil {
			d.logger.Debug("mqtt exclusive push: qos0 delivery failed", "client_id", sub.ClientID, "error", err)
		}
	case QoSAtLeastOnce:
		pkid := d.cache.GetPkid(sub.ClientID)
		pkt.PacketID = pkid
		if err := d.publishQoS1(ctx, sub.ClientID, pkt, props, pkid, stop); err != nil {
			d.logger.Error("mqtt exclusive push: qos1 delivery failed", "client_id", sub.ClientID, "pkid", pkid, "error", err)
		}
		d.cache.RemovePkidInfo(sub.ClientID, pkid)
		d.cache.RemoveAckPacket(sub.ClientID, pkid)
	case QoSExactlyOnce:
		pkid := d.cache.GetPkid(sub.ClientID)
		pkt.PacketID = pkid
		if err := d.publishQoS2(ctx, sub.ClientID, pkt, props, pkid, stop); err != nil {
			d.logger.Error("mqtt exclusive push: qos2 delivery failed", "client_id", sub.ClientID, "pkid", pkid, "error", err)
		}
		d.cache.RemovePkidInfo(sub.ClientID, pkid)
		d.cache.RemoveAckPacket(sub.ClientID, pkid)
	}
}

// publishQoS1 implements exclusive_publish_message_qos1: retry until the
// matching PUBACK arrives or the push thread is stopped. Oversized
// payloads are dropped cleanly rather than retried forever, the open
// question spec.md §9 resolves as "drop cleanly and ack upstream".
func (d *ExclusiveDriver) publishQoS1(ctx context.Context, clientID string, pkt PublishPacket, props *PublishProperties, pkid uint16, stop chan struct{}) error {
	retryTimes := 0
	ackCh := make(chan QosAckPackageData, 1)
	d.cache.AddAckPacket(clientID, pkid, QosAckPacketInfo{NotifyCh: ackCh, CreateTime: now()})

	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		connectID, ok := d.cache.GetConnectID(clientID)
		if !ok {
			if sleepOrStop(ackRetryWait, stop) {
				return nil
			}
			continue
		}

		if conn, ok := d.cache.GetConnection(connectID); ok && len(pkt.Payload) > int(conn.MaxPacketSize) {
			return nil
		}

		retryTimes++
		pkt.Dup = retryTimes >= 2

		if err := d.conns.Deliver(ctx, connectID, pkt, props); err != nil {
			if sleepOrStop(ackRetryWait, stop) {
				return nil
			}
			continue
		}

		data, ok := waitAck(ackCh, stop)
		if ok && data.AckType == AckTypePubAck && data.PacketID == pkid {
			return nil
		}
	}
}

// publishQoS2 implements exclusive_publish_message_qos2's four-phase
// protocol: PUBLISH -> PUBREC -> PUBREL -> PUBCOMP, resending the last
// sent packet whenever a wait phase times out.
func (d *ExclusiveDriver) publishQoS2(ctx context.Context, clientID string, pkt PublishPacket, props *PublishProperties, pkid uint16, stop chan struct{}) error {
	ackCh := make(chan QosAckPackageData, 1)
	d.cache.AddAckPacket(clientID, pkid, QosAckPacketInfo{NotifyCh: ackCh, CreateTime: now()})

	connectID, ok := d.cache.GetConnectID(clientID)
	if !ok {
		return fmt.Errorf("mqtt: client %s has no live connection", clientID)
	}

	if err := d.conns.Deliver(ctx, connectID, pkt, props); err != nil {
		return err
	}

	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}
		data, ok := waitAck(ackCh, stop)
		if ok && data.AckType == AckTypePubRec && data.PacketID == pkid {
			break
		}
		if err := d.conns.Deliver(ctx, connectID, pkt, props); err != nil {
			return err
		}
	}

	rel := PublishPacket{PacketID: pkid}
	if err := d.sendPubRel(ctx, connectID, rel); err != nil {
		return err
	}

	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}
		data, ok := waitAck(ackCh, stop)
		if ok && data.AckType == AckTypePubComp && data.PacketID == pkid {
			return nil
		}
		if err := d.sendPubRel(ctx, connectID, rel); err != nil {
			return err
		}
	}
}

// sendPubRel is a narrow seam over ConnectionManager for the PUBREL
// control packet, which carries no payload/properties of its own.
func (d *ExclusiveDriver) sendPubRel(ctx context.Context, connectID uint64, rel PublishPacket) error {
	return d.conns.Deliver(ctx, connectID, rel, nil)
}

// sleepOrStop waits for d, returning true if stop fired first.
func sleepOrStop(d time.Duration, stop chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-stop:
		return true
	case <-timer.C:
		return false
	}
}

// waitAck waits (bounded) for an ack on ch, returning ok=false on
// timeout or stop so the caller can decide to resend.
func waitAck(ch chan QosAckPackageData, stop chan struct{}) (QosAckPackageData, bool) {
	timer := time.NewTimer(ackRetryWait)
	defer timer.Stop()
	select {
	case data := <-ch:
		return data, true
	case <-stop:
		return QosAckPackageData{}, false
	case <-timer.C:
		return QosAckPackageData{}, false
	}
}
