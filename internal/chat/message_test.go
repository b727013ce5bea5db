package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    Message
		wantErr bool
	}{
		{name: "init", frame: `{"mtype":"INIT","id":"A"}`, want: Message{Type: TypeInit, ID: "A"}},
		{name: "broadcast", frame: `{"mtype":"TEXT","id":"A","text":"hi","to":""}`, want: Message{Type: TypeText, ID: "A", Text: "hi"}},
		{name: "broadcast without to", frame: `{"mtype":"TEXT","id":"A","text":"hi"}`, want: Message{Type: TypeText, ID: "A", Text: "hi"}},
		{name: "directed", frame: `{"mtype":"TEXT","id":"A","text":"hi","to":"B"}`, want: Message{Type: TypeText, ID: "A", Text: "hi", To: "B"}},
		{name: "init ignores text fields", frame: `{"mtype":"INIT","id":"A","text":"x","to":"B"}`, want: Message{Type: TypeInit, ID: "A"}},
		{name: "garbage", frame: `hello`, wantErr: true},
		{name: "empty", frame: ``, wantErr: true},
		{name: "null", frame: `null`, wantErr: true},
		{name: "missing mtype", frame: `{"id":"A"}`, wantErr: true},
		{name: "init without id", frame: `{"mtype":"INIT","id":""}`, wantErr: true},
		{name: "outbound type", frame: `{"mtype":"USER_ENTER","id":"A"}`, wantErr: true},
		{name: "wrong field type", frame: `{"mtype":"TEXT","id":"A","text":5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedFrame)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.want.To != "", got.IsDirected())
		})
	}
}

func TestMessageWireShape(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{userEnter("A"), `{"mtype":"USER_ENTER","id":"A"}`},
		{userLeave("A"), `{"mtype":"USER_LEAVE","id":"A"}`},
		{broadcastText("B", "hi"), `{"mtype":"MSG","id":"B","text":"hi"}`},
		{directText("A", ""), `{"mtype":"DM","id":"A","text":""}`},
	}

	for _, tt := range tests {
		got, err := json.Marshal(tt.msg)
		require.NoError(t, err)
		require.JSONEq(t, tt.want, string(got))
	}
}
