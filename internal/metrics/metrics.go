package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/s21platform/metrics-lib/pkg"
)

const namespace = "turfbook_chat"

// Client forwards what the synchronization client does with each delivery
// to statsd. The CLI is short-lived and has nothing to scrape, so counters are
// pushed instead of served.
type Client struct {
	m pkg.MetricInterface
}

func NewClient(m pkg.MetricInterface) *Client {
	return &Client{m: m}
}

func (c *Client) ObserveFetch(kind, outcome string) {
	c.m.Increment(fmt.Sprintf("client.fetch.%s.%s", kind, outcome))
}

func (c *Client) ObservePush(outcome string) {
	c.m.Increment(fmt.Sprintf("client.push.%s", outcome))
}

func (c *Client) ObserveSend(outcome string) {
	c.m.Increment(fmt.Sprintf("client.send.%s", outcome))
}

// Server instruments the reference chat server.
type Server struct {
	messagesStored prometheus.Counter
	connections    prometheus.Gauge
	frames         *prometheus.CounterVec
}

func NewServer(reg prometheus.Registerer) *Server {
	s := &Server{
		messagesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "messages_stored_total",
			Help:      "Messages persisted through the REST API.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "socket_connections",
			Help:      "Currently open push sockets.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "socket_frames_total",
			Help:      "Frames handled on push sockets by direction and event.",
		}, []string{"direction", "event"}),
	}
	reg.MustRegister(s.messagesStored, s.connections, s.frames)

	return s
}

func (s *Server) MessageStored() {
	s.messagesStored.Inc()
}

func (s *Server) SocketOpened() {
	s.connections.Inc()
}

func (s *Server) SocketClosed() {
	s.connections.Dec()
}

func (s *Server) Frame(direction, event string) {
	s.frames.WithLabelValues(direction, event).Inc()
}
