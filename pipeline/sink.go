package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360studio/isamples/assemble"
)

// Sink receives assembled search documents. Write may be called from
// several goroutines.
type Sink interface {
	Write(ctx context.Context, doc assemble.Document) error
	Close() error
}

// JSONLSink writes one JSON document per line.
type JSONLSink struct {
	mu  sync.Mutex
	buf *bufio.Writer
	enc *json.Encoder
}

// NewJSONLSink writes documents to w. Close flushes but does not close w.
func NewJSONLSink(w io.Writer) *JSONLSink {
	buf := bufio.NewWriter(w)
	return &JSONLSink{buf: buf, enc: json.NewEncoder(buf)}
}

func (s *JSONLSink) Write(_ context.Context, doc assemble.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(doc); err != nil {
		return fmt.Errorf("write document %s: %w", doc.ID(), err)
	}
	return nil
}

// Close flushes buffered documents.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Flush()
}

// NATSSink publishes each document as a JSON message. The sample identifier
// is set as the message id so a JetStream stream drops re-published
// duplicates.
type NATSSink struct {
	conn    *nats.Conn
	subject string
	owned   bool
}

// NewNATSSink publishes on an existing connection, which the caller keeps
// ownership of.
func NewNATSSink(conn *nats.Conn, subject string) *NATSSink {
	return &NATSSink{conn: conn, subject: subject}
}

// ConnectNATSSink dials url and publishes on subject. Close drains the
// connection.
func ConnectNATSSink(url, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.Name("isamples-pipeline"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSSink{conn: conn, subject: subject, owned: true}, nil
}

func (s *NATSSink) Write(_ context.Context, doc assemble.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID(), err)
	}
	msg := nats.NewMsg(s.subject)
	msg.Header.Set(nats.MsgIdHdr, doc.ID())
	msg.Data = data
	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish document %s: %w", doc.ID(), err)
	}
	return nil
}

// Close flushes pending publishes, and drains the connection when the sink
// dialled it.
func (s *NATSSink) Close() error {
	if s.owned {
		return s.conn.Drain()
	}
	return s.conn.Flush()
}
