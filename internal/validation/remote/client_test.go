package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fdctax/internal/validation"
	"fdctax/pkg/platform/sentinel"
)

func TestClientCheck(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"valid":true,"message":"Valid ABN"}`))
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL + "/")
	res, err := c.Check(context.Background(), validation.KindABN, "51 824 753 556")
	require.NoError(t, err)

	assert.Equal(t, "/api/validate-abn", gotPath)
	assert.Equal(t, "51 824 753 556", gotBody["abn"])
	assert.True(t, res.IsValid())
	assert.Equal(t, "Valid ABN", res.Message)
}

func TestClientCheckInvalidVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"valid":false,"message":"Invalid TFN - please check the number"}`))
	}))
	t.Cleanup(srv.Close)

	res, err := New(srv.URL).Check(context.Background(), validation.KindTFN, "123456789")
	require.NoError(t, err)
	assert.True(t, res.Evaluated())
	assert.False(t, res.IsValid())
	assert.Equal(t, validation.MsgTFNInvalid, res.Message)
}

func TestClientCheckUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL).Check(context.Background(), validation.KindTFN, "123456782")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))
}

func TestClientCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).Check(context.Background(), validation.KindTFN, "123456782")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable))
}
