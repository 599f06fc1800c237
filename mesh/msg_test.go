package mesh

import "testing"

func TestMsgKind(t *testing.T) {
	tests := []struct {
		msg  Msg
		want string
	}{
		{CopyMsg{}, "copy"},
		{ComputeMsg{}, "compute"},
		{DidToEidMsg{}, "did_to_eid"},
	}
	for _, tt := range tests {
		if got := msgKind(tt.msg); got != tt.want {
			t.Errorf("msgKind(%T) = %q; want %q", tt.msg, got, tt.want)
		}
	}
}
