package mqtt

import "github.com/robustmq/robustmq-go/pkg/cmap"

// RetainedMessage is a topic's last-retained PUBLISH payload, mirroring
// placement.MqttTopic.RetainMessage once decoded locally for the push
// pipeline's prelude send.
type RetainedMessage struct {
	Topic   string
	Payload []byte
	Qos     QoS
}

// RetainStore is the delivery core's local view of retained messages
// per topic, a supplemented collaborator `sub_exclusive.rs`'s
// try_send_retain_message references but that the distilled spec leaves
// undetailed beyond SetTopicRetainMessage's RPC shape. The placement
// center remains the source of truth (MqttTopic.RetainMessage,
// replicated via SetTopicRetainMessage); this store is the broker-local
// cache populated from the catalog update feed, not a second owner.
type RetainStore struct {
	byTopic *cmap.Map[string, RetainedMessage]
}

// NewRetainStore creates an empty store.
func NewRetainStore() *RetainStore {
	return &RetainStore{byTopic: cmap.New[string, RetainedMessage]()}
}

// Set records or replaces a topic's retained message.
func (s *RetainStore) Set(msg RetainedMessage) {
	s.byTopic.Set(msg.Topic, msg)
}

// Clear removes a topic's retained message, mirroring
// SetTopicRetainMessageRequest.Remove.
func (s *RetainStore) Clear(topic string) {
	s.byTopic.Delete(topic)
}

// Get looks up a topic's retained message.
func (s *RetainStore) Get(topic string) (RetainedMessage, bool) {
	return s.byTopic.Get(topic)
}

// BuildRetainPublish builds the PUBLISH a push thread's prelude sends
// for a retained message, honoring preserveRetain: when false, the
// packet still carries the payload but the retain flag is forced off
// (spec.md §4.6 step 1's `retain = subscriber.preserve_retain ? msg.retain : false`).
func BuildRetainPublish(msg RetainedMessage, preserveRetain bool) PublishPacket {
	return PublishPacket{
		Qos:     msg.Qos,
		Retain:  preserveRetain,
		Topic:   msg.Topic,
		Payload: msg.Payload,
	}
}
