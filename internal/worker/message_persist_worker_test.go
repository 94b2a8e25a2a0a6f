package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gopherai-docqa/internal/model"
)

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	records map[uint64]*ackRecord
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{records: map[uint64]*ackRecord{}}
}

// get returns a copy of the record for tag.
func (f *fakeAcknowledger) get(tag uint64) *ackRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := ackRecord{}
	if got, ok := f.records[tag]; ok {
		r = *got
	}
	return &r
}

func (f *fakeAcknowledger) update(tag uint64, fn func(*ackRecord)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[tag]
	if !ok {
		r = &ackRecord{}
		f.records[tag] = r
	}
	fn(r)
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.update(tag, func(r *ackRecord) { r.acked = true })
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.update(tag, func(r *ackRecord) { r.nacked, r.requeue = true, requeue })
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

type memWriter struct {
	mu    sync.Mutex
	saved []model.Message
	err   error
}

func (m *memWriter) Create(msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, *msg)
	return nil
}

func delivery(ack amqp.Acknowledger, tag uint64, body string, redelivered bool) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: []byte(body), Redelivered: redelivered}
}

func TestHandle(t *testing.T) {
	ack := newFakeAcknowledger()
	repo := &memWriter{}
	w := NewMessagePersistWorker(nil, repo, "q", nil)

	w.handle(delivery(ack, 1, `{"session_id":3,"role":"assistant","content":"hi","query_type":"rag","tools_used":["PDF_Document_Knowledge_Base"]}`, false))
	w.handle(delivery(ack, 2, `not json`, false))

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "rag", repo.saved[0].QueryType)
	assert.Equal(t, []string{"PDF_Document_Knowledge_Base"}, repo.saved[0].ToolsUsed)
	assert.Equal(t, &ackRecord{acked: true}, ack.get(1))
	assert.Equal(t, &ackRecord{nacked: true}, ack.get(2))
}

func TestHandle_WriteFailureRequeuesOnce(t *testing.T) {
	ack := newFakeAcknowledger()
	w := NewMessagePersistWorker(nil, &memWriter{err: errors.New("db down")}, "q", nil)

	w.handle(delivery(ack, 1, `{"session_id":3}`, false))
	w.handle(delivery(ack, 2, `{"session_id":3}`, true))

	assert.Equal(t, &ackRecord{nacked: true, requeue: true}, ack.get(1))
	assert.Equal(t, &ackRecord{nacked: true}, ack.get(2))
}

func TestConsume_StopsOnCancelAndClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	ack := newFakeAcknowledger()
	repo := &memWriter{}
	w := NewMessagePersistWorker(nil, repo, "q", nil)

	deliveries := make(chan amqp.Delivery, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.consume(ctx, deliveries)
		close(done)
	}()

	deliveries <- delivery(ack, 1, `{"session_id":1}`, false)
	require.Eventually(t, func() bool { return ack.get(1).acked }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	closed := make(chan amqp.Delivery)
	close(closed)
	w.consume(context.Background(), closed)
}
