// Package env creates links from URLs, with defaults taken from the
// environment and command line flags.
package env

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/bytelink/pkg/link"
	"github.com/robotalks/bytelink/pkg/link/loopback"
	"github.com/robotalks/bytelink/pkg/link/mqtt"
	"github.com/robotalks/bytelink/pkg/link/serial"
	"github.com/robotalks/bytelink/pkg/link/stream"
	"github.com/robotalks/bytelink/pkg/link/ws"
)

// EnvURL names the environment variable holding the default link URL.
const EnvURL = "BYTELINK_URL"

// Config provides common options to create links.
type Config struct {
	// URL selects the medium, e.g.
	//   loopback://?capacity=2048
	//   serial:///dev/ttyUSB0?baud=115200
	//   stdio://
	//   mqtt://host:1883/topic-prefix?role=a
	//   ws://host:port/path
	URL string

	// MQTTClientID is used when the mqtt URL has no client-id.
	MQTTClientID string
	// MQTTTimeout bounds each broker acknowledgement.
	MQTTTimeout time.Duration
	// WSOrigin is sent with websocket handshakes.
	WSOrigin string
}

var defaultConfig = Config{
	URL:         "loopback://",
	MQTTTimeout: 5 * time.Second,
}

func init() {
	if val := os.Getenv(EnvURL); val != "" {
		defaultConfig.URL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.URL, "link", defaultConfig.URL, "Link URL.")
	flag.StringVar(&defaultConfig.MQTTClientID, "mqtt-client-id", defaultConfig.MQTTClientID, "MQTT client ID, defaults to one derived from machine ID.")
	flag.DurationVar(&defaultConfig.MQTTTimeout, "mqtt-timeout", defaultConfig.MQTTTimeout, "MQTT acknowledgement timeout.")
	flag.StringVar(&defaultConfig.WSOrigin, "ws-origin", defaultConfig.WSOrigin, "Websocket origin.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

func configErr(op string, format string, args ...interface{}) error {
	return &link.ConfigError{Op: op, Err: fmt.Errorf(format, args...)}
}

// NewTransport creates a link from URL. The link is not initialized.
// For loopback the returned endpoint is A, and B is reachable through
// (*loopback.Endpoint).Peer.
func (c *Config) NewTransport() (link.TransportCloser, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, &link.ConfigError{Op: "link url", Err: err}
	}
	query := u.Query()
	glog.V(2).Infof("new link %s", u.Redacted())
	switch u.Scheme {
	case "loopback":
		capacity := 0
		if val := query.Get("capacity"); val != "" {
			if capacity, err = strconv.Atoi(val); err != nil || capacity < 2 {
				return nil, configErr("loopback capacity", "invalid capacity %q", val)
			}
		}
		a, _ := loopback.NewPair(capacity)
		return a, nil
	case "serial":
		cfg, err := serial.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		if u.Path != "" {
			cfg.Device = u.Path
		}
		if val := query.Get("baud"); val != "" {
			if cfg.Baud, err = strconv.Atoi(val); err != nil {
				return nil, configErr("serial baud", "invalid baud %q", val)
			}
		}
		if _, err := cfg.Mode(); err != nil {
			return nil, err
		}
		return serial.New(cfg), nil
	case "stdio":
		return stream.Stdio(), nil
	case "mqtt", "mqtts":
		return c.newMQTT(u)
	case "ws", "wss":
		t, err := ws.Dial(c.URL, c.WSOrigin)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return nil, configErr("link url", "unknown scheme %q", u.Scheme)
}

func (c *Config) newMQTT(u *url.URL) (link.TransportCloser, error) {
	query := u.Query()
	role, err := mqtt.ParseRole(query.Get("role"))
	if err != nil {
		return nil, &link.ConfigError{Op: "mqtt role", Err: err}
	}
	opts, prefix, err := mqtt.ClientOptionsFromURL(c.URL)
	if err != nil {
		return nil, &link.ConfigError{Op: "mqtt url", Err: err}
	}
	if query.Get("client-id") == "" {
		clientID := c.MQTTClientID
		if clientID == "" {
			clientID = ClientID()
		}
		// both roles may run on one machine.
		opts.SetClientID(clientID + "-" + role.String())
	}
	q := mqtt.NewQueue(opts, prefix)
	q.Timeout = c.MQTTTimeout
	return mqtt.New(q, role), nil
}

// MustNewTransport creates and initializes a link, and exits on failure.
func (c *Config) MustNewTransport() link.TransportCloser {
	t, err := c.NewTransport()
	if err == nil {
		err = t.Init()
	}
	if err != nil {
		glog.Exitf("link %s: %v", c.URL, err)
	}
	return t
}
