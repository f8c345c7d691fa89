package submitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"AleoRisk/internal/domain/models"
	"AleoRisk/internal/services/aleo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "aleo1qnr4dkkvkgfqph0vzc3y6z2eu975wnpz2925ntjccd5cfqxtyu8sta57j8"

var validTx = "at1" + strings.Repeat("k", 58)

type fakePublisher struct {
	topic string
	key   []byte
	value interface{}
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return f.err
}

func TestKafkaSubmitter(t *testing.T) {
	pub := &fakePublisher{}
	s := NewKafkaSubmitter(pub, "aleorisk.transactions")
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	tx := aleo.VerifyRiskReport(owner, "1field")
	st, err := s.Submit(context.Background(), tx)
	require.NoError(t, err)

	assert.True(t, aleo.IsValidTransactionID(st.TxID), st.TxID)
	assert.Equal(t, models.TxPending, st.Status)
	assert.Equal(t, aleo.FnVerifyRiskReport, st.Function)
	assert.Equal(t, aleo.ExplorerURL(st.TxID), st.ExplorerURL)

	assert.Equal(t, "aleorisk.transactions", pub.topic)
	assert.Equal(t, []byte(owner), pub.key)
	env, ok := pub.value.(Envelope)
	require.True(t, ok)
	assert.Equal(t, st.TxID, env.TxID)
	assert.Equal(t, tx, env.Transaction)
	assert.Equal(t, s.now(), env.SubmittedAt)
}

func TestKafkaSubmitterPublishError(t *testing.T) {
	s := NewKafkaSubmitter(&fakePublisher{err: errors.New("broker down")}, "t")
	_, err := s.Submit(context.Background(), aleo.VerifyRiskReport(owner, "1field"))
	assert.ErrorContains(t, err, "broker down")
}

func TestTransactionID(t *testing.T) {
	a := TransactionID([]byte("payload"), "n1")
	assert.Equal(t, a, TransactionID([]byte("payload"), "n1"))
	assert.NotEqual(t, a, TransactionID([]byte("payload"), "n2"))
	assert.True(t, aleo.IsValidTransactionID(a))
}

func TestHTTPSubmitter(t *testing.T) {
	var got models.Transaction
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tx_id":"` + validTx + `","status":"confirmed","block_height":812345,"confirmations":6}`))
	}))
	defer srv.Close()

	s := NewHTTPSubmitter(NewBridgeClient(srv.URL+"/", time.Second, 0))
	tx := aleo.ExportReceipt(owner, "1field", "2field", models.RiskLow)
	st, err := s.Submit(context.Background(), tx)
	require.NoError(t, err)

	assert.Equal(t, tx, got)
	assert.Equal(t, validTx, st.TxID)
	assert.Equal(t, models.TxConfirmed, st.Status)
	require.NotNil(t, st.BlockHeight)
	assert.Equal(t, int64(812345), *st.BlockHeight)
	require.NotNil(t, st.Confirmations)
	assert.Equal(t, 6, *st.Confirmations)
}

func TestHTTPSubmitterRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"tx_id":"` + validTx + `","status":"pending"}`))
	}))
	defer srv.Close()

	s := NewHTTPSubmitter(NewBridgeClient(srv.URL, time.Second, 2))
	st, err := s.Submit(context.Background(), aleo.VerifyRiskReport(owner, "1field"))
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, st.Status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPSubmitterRejectsBadReplies(t *testing.T) {
	cases := map[string]string{
		"invalid id": `{"tx_id":"nope","status":"pending"}`,
		"failed":     `{"tx_id":"` + validTx + `","status":"failed"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			s := NewHTTPSubmitter(NewBridgeClient(srv.URL, time.Second, 0))
			_, err := s.Submit(context.Background(), aleo.VerifyRiskReport(owner, "1field"))
			assert.Error(t, err)
		})
	}
}

func TestBridgeClientNotInitialized(t *testing.T) {
	var b *BridgeClient
	assert.Error(t, b.PostJSON(context.Background(), "/x", nil, nil))
	assert.Error(t, NewBridgeClient("", time.Second, 0).PostJSON(context.Background(), "/x", nil, nil))
}
