package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestID_AcceptsNumbersAndStrings(t *testing.T) {
	var in Incoming
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"group_id":"g-7","sender_id":3}`), &in))
	require.Equal(t, ID("42"), in.ID)
	require.Equal(t, ID("g-7"), in.GroupID)
	require.Equal(t, ID("3"), in.SenderID)
}

func TestID_Null(t *testing.T) {
	var a Ack
	require.NoError(t, json.Unmarshal([]byte(`{"id":null}`), &a))
	require.Equal(t, ID(""), a.ID)
}

func TestOutgoing_OmitsUnusedTarget(t *testing.T) {
	b, err := json.Marshal(Outgoing{GroupID: "g1", Message: "hi", Type: KindText})
	require.NoError(t, err)
	require.JSONEq(t, `{"group_id":"g1","message":"hi","type":"text"}`, string(b))
}

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{in: "2025-03-01T10:20:30Z", want: time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{in: "2025-03-01T10:20:30.123456", want: time.Date(2025, 3, 1, 10, 20, 30, 123456000, time.UTC)},
		{in: "2025-03-01T10:20:30", want: time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{in: " 2025-03-01T10:20:30.5+00:00 ", want: time.Date(2025, 3, 1, 10, 20, 30, 500000000, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := ParseTime(tc.in)
		require.True(t, ok, tc.in)
		require.True(t, tc.want.Equal(got), "%s: got %s", tc.in, got)
	}

	_, ok := ParseTime("yesterday")
	require.False(t, ok)
}
