package mqtt

import (
	"strings"

	"github.com/robustmq/robustmq-go/pkg/cmap"
)

// Manager owns the subscription indexes and the identity map from
// subscription to running push thread, grounded method-for-method on
// the source SubScribeManager (topic_subscribe/client_subscribe/
// parse_subscribe/remove_topic/remove_subscribe/remove_connect_subscribe),
// extended with the exclusive_subscribe/exclusive_push_thread indexes
// spec.md §4.5/§4.6 add on top of the distilled parse_subscribe.
type Manager struct {
	// topic_id -> client_id -> Subscriber
	topicSubscribe *cmap.Map[string, *cmap.Map[string, Subscriber]]
	// client_id -> topic_id -> subscribe_time (unix seconds)
	clientSubscribe *cmap.Map[string, *cmap.Map[string, int64]]
	// exclusive_key -> Subscriber, every matched subscriber; all are
	// delivered in exclusive mode (there is no shared-subscription mode).
	exclusiveSubscribe *cmap.Map[string, Subscriber]
	// exclusive_key -> stop channel for that subscription's push thread.
	exclusivePushThread *cmap.Map[string, chan struct{}]
}

// NewManager creates an empty subscription manager.
func NewManager() *Manager {
	return &Manager{
		topicSubscribe:       cmap.New[string, *cmap.Map[string, Subscriber]](),
		clientSubscribe:      cmap.New[string, *cmap.Map[string, int64]](),
		exclusiveSubscribe:   cmap.New[string, Subscriber](),
		exclusivePushThread:  cmap.New[string, chan struct{}](),
	}
}

// KnownTopic is one (topic_id, topic_name) pair from the metadata
// cache, the set parse_subscribe matches SUBSCRIBE filters against.
type KnownTopic struct {
	TopicID   string
	TopicName string
}

// ParseSubscribe matches every filter in a decoded SUBSCRIBE packet
// against every topic known to the metadata cache, inserting a
// Subscriber into topicSubscribe, clientSubscribe and exclusiveSubscribe
// wherever pathRegexMatch(topic.TopicName, filter.Path) holds. Every
// filter is treated as exclusive; shared-subscription filters are not
// recognized.
func (m *Manager) ParseSubscribe(protocol, clientID string, topics []KnownTopic, filters []Filter, subscriptionIdentifier *uint32) {
	for _, topic := range topics {
		tpSub, _ := m.topicSubscribe.GetOrSet(topic.TopicID, cmap.New[string, Subscriber]())
		clientSub, _ := m.clientSubscribe.GetOrSet(clientID, cmap.New[string, int64]())

		for _, filter := range filters {
			if !pathRegexMatch(topic.TopicName, filter.Path) {
				continue
			}

			sub := Subscriber{
				Protocol:               protocol,
				ClientID:               clientID,
				TopicID:                topic.TopicID,
				TopicName:              topic.TopicName,
				SubPath:                filter.Path,
				Qos:                    filter.Qos,
				NoLocal:                filter.NoLocal,
				PreserveRetain:         filter.PreserveRetain,
				SubscriptionIdentifier: subscriptionIdentifier,
			}

			tpSub.Set(clientID, sub)
			clientSub.Set(topic.TopicID, now())
			m.exclusiveSubscribe.Set(sub.ExclusiveKey(), sub)
		}
	}
}

// RemoveTopic drops every subscriber of one topic, e.g. on topic delete.
func (m *Manager) RemoveTopic(topicID string) {
	m.topicSubscribe.Delete(topicID)
}

// RemoveSubscribe removes clientID's subscription to each of topicIDs.
func (m *Manager) RemoveSubscribe(clientID string, topicIDs []string) {
	for _, topicID := range topicIDs {
		if subs, ok := m.topicSubscribe.Get(topicID); ok {
			if sub, ok := subs.Get(clientID); ok {
				m.exclusiveSubscribe.Delete(sub.ExclusiveKey())
			}
			subs.Delete(clientID)
		}
	}
}

// RemoveConnectSubscribe removes every subscription clientID holds,
// across all topics, e.g. on client disconnect.
func (m *Manager) RemoveConnectSubscribe(clientID string) {
	for _, topicID := range m.topicSubscribe.Keys() {
		subs, ok := m.topicSubscribe.Get(topicID)
		if !ok {
			continue
		}
		if sub, ok := subs.Get(clientID); ok {
			m.exclusiveSubscribe.Delete(sub.ExclusiveKey())
			subs.Delete(clientID)
		}
	}
	m.clientSubscribe.Delete(clientID)
}

// ExclusiveSubscriptions returns a point-in-time snapshot of every
// exclusive-mode subscriber, the set the push-thread scheduler iterates
// each tick (spec.md §4.6's spawn rule).
func (m *Manager) ExclusiveSubscriptions() []Subscriber {
	return m.exclusiveSubscribe.Values()
}

// HasExclusiveSubscription reports whether key is still subscribed,
// the check the GC rule uses before tearing down a push thread.
func (m *Manager) HasExclusiveSubscription(key string) bool {
	return m.exclusiveSubscribe.Has(key)
}

// RegisterPushThread records the stop channel for a newly spawned push
// thread, returning false if one is already registered for key (the
// spawn rule's "not already present" guard).
func (m *Manager) RegisterPushThread(key string, stop chan struct{}) bool {
	return m.exclusivePushThread.SetIfAbsent(key, stop)
}

// PushThreads returns a point-in-time snapshot of every registered push
// thread key and its stop channel, the set the GC rule iterates.
func (m *Manager) PushThreads() map[string]chan struct{} {
	out := make(map[string]chan struct{})
	for _, item := range m.exclusivePushThread.Items() {
		out[item.Key] = item.Value
	}
	return out
}

// RemovePushThread forgets a push thread's registration, whether it was
// reaped by the GC rule or self-removed on terminal exit.
func (m *Manager) RemovePushThread(key string) {
	m.exclusivePushThread.Delete(key)
}

// pathRegexMatch reports whether topicName matches filter under MQTT
// wildcard semantics: '+' matches exactly one level, '#' matches the
// remainder of the topic (must be the filter's final level).
func pathRegexMatch(topicName, filter string) bool {
	if strings.HasPrefix(topicName, "$") {
		if strings.HasPrefix(filter, "+") || strings.HasPrefix(filter, "#") {
			return false
		}
	}

	topicLevels := strings.Split(topicName, "/")
	filterLevels := strings.Split(filter, "/")

	i := 0
	for ; i < len(filterLevels); i++ {
		level := filterLevels[i]
		if level == "#" {
			return true
		}
		if i >= len(topicLevels) {
			return false
		}
		if level != "+" && level != topicLevels[i] {
			return false
		}
	}
	return i == len(topicLevels)
}
