package blockchainservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushBackPopFrontFIFO(t *testing.T) {
	s := openTestStore(t, nil)

	require.NoError(t, s.PushBack(KindFileDeletionRequest, QueuedRequest{Payload: []byte("a")}))
	require.NoError(t, s.PushBack(KindFileDeletionRequest, QueuedRequest{Payload: []byte("b")}))

	n, err := s.Len(KindFileDeletionRequest)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, ok, err := s.PopFront(KindFileDeletionRequest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), first.Payload)

	second, ok, err := s.PopFront(KindFileDeletionRequest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("b"), second.Payload)

	_, ok, err = s.PopFront(KindFileDeletionRequest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPushFrontRestoresInFlightAtHead(t *testing.T) {
	s := openTestStore(t, nil)
	require.NoError(t, s.PushBack(KindConfirmStoring, QueuedRequest{Payload: []byte("queued")}))

	inFlight, ok, err := s.PopFront(KindConfirmStoring)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.PushFront(KindConfirmStoring, inFlight))

	first, ok, err := s.PopFront(KindConfirmStoring)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("queued"), first.Payload)
}

func TestOngoingMarkerRoundTrip(t *testing.T) {
	s := openTestStore(t, nil)
	_, ok, err := s.Ongoing(KindSubmitProof)
	require.NoError(t, err)
	assert.False(t, ok)

	req := QueuedRequest{Kind: KindSubmitProof, Payload: []byte("x"), TryCount: 1}
	require.NoError(t, s.SetOngoing(KindSubmitProof, req))

	got, ok, err := s.Ongoing(KindSubmitProof)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, req.Payload, got.Payload)
	assert.Equal(t, req.TryCount, got.TryCount)

	require.NoError(t, s.ClearOngoing(KindSubmitProof))
	_, ok, err = s.Ongoing(KindSubmitProof)
	require.NoError(t, err)
	assert.False(t, ok)
}
