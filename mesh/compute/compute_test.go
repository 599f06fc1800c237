package compute

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestArgLens(t *testing.T) {
	tests := []struct {
		name string
		args [][]byte
		want []byte
	}{
		{"no args", nil, []byte{}},
		{"single arg", [][]byte{[]byte("abc")}, []byte{3}},
		{"several args", [][]byte{[]byte("compute f"), []byte("arg a")}, []byte{9, 5}},
		{"empty arg", [][]byte{{}}, []byte{0}},
		{"length wraps at a byte", [][]byte{make([]byte, 300)}, []byte{300 % 256}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArgLens(tt.args)
			if err != nil {
				t.Fatalf("ArgLens failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("ArgLens = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestConcat(t *testing.T) {
	got, err := Concat([][]byte{[]byte("foo"), nil, []byte("bar")})
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	if !bytes.Equal(got, []byte("foobar")) {
		t.Errorf("Concat = %q; want foobar", got)
	}
}

func TestFromCompleter(t *testing.T) {
	t.Run("passes arguments through in order", func(t *testing.T) {
		mock := &MockCompleter{Responses: [][]byte{[]byte("result")}}
		fn := FromCompleter(mock)

		args := [][]byte{[]byte("instruction"), []byte("input")}
		got, err := fn(args)
		if err != nil {
			t.Fatalf("Func failed: %v", err)
		}
		if !bytes.Equal(got, []byte("result")) {
			t.Errorf("Func = %q; want result", got)
		}
		if len(mock.Calls) != 1 {
			t.Fatalf("completer called %d times; want 1", len(mock.Calls))
		}
		if !bytes.Equal(mock.Calls[0][0], args[0]) || !bytes.Equal(mock.Calls[0][1], args[1]) {
			t.Error("completer saw reordered or altered arguments")
		}
	})

	t.Run("propagates completer errors", func(t *testing.T) {
		wantErr := errors.New("provider down")
		fn := FromCompleter(&MockCompleter{Err: wantErr})
		if _, err := fn([][]byte{[]byte("x")}); !errors.Is(err, wantErr) {
			t.Errorf("Func error = %v; want provider down", err)
		}
	})
}

func TestMockCompleter_ResponseSequence(t *testing.T) {
	mock := &MockCompleter{Responses: [][]byte{[]byte("one"), []byte("two")}}
	ctx := context.Background()

	for _, want := range []string{"one", "two", "two"} {
		got, err := mock.Complete(ctx, nil)
		if err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
		if string(got) != want {
			t.Errorf("Complete = %q; want %q", got, want)
		}
	}
}

func TestMockCompleter_ContextCancellation(t *testing.T) {
	mock := &MockCompleter{Responses: [][]byte{[]byte("x")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := mock.Complete(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Complete = %v; want context.Canceled", err)
	}
}
