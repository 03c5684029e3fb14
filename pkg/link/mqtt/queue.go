package mqtt

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// ErrTimeout indicates the broker didn't acknowledge in time.
var ErrTimeout = errors.New("broker timeout")

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// Broker is the subset of a broker client used by Transport.
type Broker interface {
	Connect() error
	Subscribe(topic string, handler Handler) error
	Publish(topic string, payload []byte) error
	Close() error
}

// Queue wraps a paho client. All topics are relative to TopicPrefix.
type Queue struct {
	Client      paho.Client
	TopicPrefix string
	// Timeout bounds waiting for each broker acknowledgement. Zero waits
	// forever.
	Timeout time.Duration

	subsLock sync.RWMutex
	subs     map[string][]Handler
}

// MatchTopic matches topic with pattern.
func MatchTopic(topic, pattern string) bool {
	tokensT, tokensP := strings.Split(topic, "/"), strings.Split(pattern, "/")
	for i, token := range tokensP {
		if token == "#" && i+1 == len(tokensP) {
			return true
		}
		if i >= len(tokensT) {
			return false
		}
		if token != "+" && token != tokensT[i] {
			return false
		}
	}
	return len(tokensP) == len(tokensT)
}

// ClientOptionsFromURL creates ClientOptions from URL. The returned topic
// prefix is the URL path with a trailing slash, or empty.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	if u.Host == "" {
		return nil, "", errors.New("missing broker host in " + serverURL)
	}
	scheme := u.Scheme
	switch scheme {
	case "", "mqtt":
		scheme = "tcp"
	case "mqtts":
		scheme = "ssl"
	}

	topicPrefix := strings.Trim(u.Path, "/")
	if topicPrefix != "" {
		topicPrefix += "/"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, topicPrefix, nil
}

// NewQueue creates a Queue.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix}
	options.SetOnConnectHandler(q.onConnect)
	options.SetConnectionLostHandler(q.onConnectionLost)
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates a Queue from URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

func (q *Queue) wait(token paho.Token) error {
	if q.Timeout > 0 {
		if !token.WaitTimeout(q.Timeout) {
			return ErrTimeout
		}
	} else {
		token.Wait()
	}
	return token.Error()
}

// Connect implements Broker.
func (q *Queue) Connect() error {
	return q.wait(q.Client.Connect())
}

// Close implements Broker.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// Subscribe implements Broker. The broker subscription is made once per
// topic, further handlers share it. If the broker rejects the subscription
// the topic is forgotten, so a retry subscribes again.
func (q *Queue) Subscribe(topic string, handler Handler) error {
	q.subsLock.Lock()
	if q.subs == nil {
		q.subs = make(map[string][]Handler)
	}
	first := len(q.subs[topic]) == 0
	q.subs[topic] = append(q.subs[topic], handler)
	q.subsLock.Unlock()
	if !first {
		return nil
	}
	glog.V(2).Infof("SUB %q", q.TopicPrefix+topic)
	err := q.wait(q.Client.Subscribe(q.TopicPrefix+topic, 1, q.dispatch))
	if err != nil {
		q.subsLock.Lock()
		delete(q.subs, topic)
		q.subsLock.Unlock()
	}
	return err
}

// Publish implements Broker.
func (q *Queue) Publish(topic string, payload []byte) error {
	return q.wait(q.Client.Publish(q.TopicPrefix+topic, 1, false, payload))
}

func (q *Queue) resubscribe() paho.Token {
	filters := make(map[string]byte)
	q.subsLock.RLock()
	for topic := range q.subs {
		filters[q.TopicPrefix+topic] = 1
	}
	q.subsLock.RUnlock()
	if len(filters) == 0 {
		return &paho.DummyToken{}
	}
	for key := range filters {
		glog.V(2).Infof("SUB %q", key)
	}
	return q.Client.SubscribeMultiple(filters, q.dispatch)
}

func (q *Queue) onConnect(paho.Client) {
	glog.Info("broker connected")
	q.resubscribe()
}

func (q *Queue) onConnectionLost(c paho.Client, err error) {
	glog.Warningf("broker connection lost: %v", err)
}

func (q *Queue) dispatch(c paho.Client, msg paho.Message) {
	q.deliver(msg.Topic(), msg.Payload())
}

// deliver strips the prefix and calls every handler whose topic matches.
func (q *Queue) deliver(topic string, payload []byte) {
	if !strings.HasPrefix(topic, q.TopicPrefix) {
		return
	}
	topic = topic[len(q.TopicPrefix):]
	glog.V(3).Infof("RCV %q %dB", topic, len(payload))
	var handlers []Handler
	q.subsLock.RLock()
	for pattern, hs := range q.subs {
		if MatchTopic(topic, pattern) {
			handlers = append(handlers, hs...)
		}
	}
	q.subsLock.RUnlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}
