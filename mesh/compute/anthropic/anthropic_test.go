package anthropic

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

// fakeClient records the last createMessage call and returns a scripted
// result.
type fakeClient struct {
	instruction string
	inputs      [][]byte
	result      []byte
	err         error
}

func (f *fakeClient) createMessage(_ context.Context, instruction string, inputs [][]byte) ([]byte, error) {
	f.instruction = instruction
	f.inputs = inputs
	return f.result, f.err
}

func TestCompleter_Complete(t *testing.T) {
	fake := &fakeClient{result: []byte("completion")}
	c := NewCompleter("test-key", "")
	c.client = fake

	args := [][]byte{[]byte("summarise"), []byte("doc one"), []byte("doc two")}
	got, err := c.Complete(context.Background(), args)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !bytes.Equal(got, []byte("completion")) {
		t.Errorf("Complete = %q; want completion", got)
	}
	if fake.instruction != "summarise" {
		t.Errorf("instruction = %q; want the first blob", fake.instruction)
	}
	if len(fake.inputs) != 2 || string(fake.inputs[0]) != "doc one" || string(fake.inputs[1]) != "doc two" {
		t.Errorf("inputs = %q; want the remaining blobs in order", fake.inputs)
	}
}

func TestCompleter_NoArgs(t *testing.T) {
	c := NewCompleter("test-key", "")
	c.client = &fakeClient{}
	if _, err := c.Complete(context.Background(), nil); err == nil {
		t.Error("Complete accepted zero arguments")
	}
}

func TestCompleter_ContextCancellation(t *testing.T) {
	c := NewCompleter("test-key", "")
	c.client = &fakeClient{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Complete(ctx, [][]byte{[]byte("x")}); !errors.Is(err, context.Canceled) {
		t.Errorf("Complete = %v; want context.Canceled", err)
	}
}

func TestCompleter_PropagatesErrors(t *testing.T) {
	wantErr := errors.New("rate limited")
	c := NewCompleter("test-key", "")
	c.client = &fakeClient{err: wantErr}
	if _, err := c.Complete(context.Background(), [][]byte{[]byte("x")}); !errors.Is(err, wantErr) {
		t.Errorf("Complete = %v; want rate limited", err)
	}
}

func TestCompleter_DefaultModel(t *testing.T) {
	c := NewCompleter("test-key", "")
	if c.modelName == "" {
		t.Error("empty model name not defaulted")
	}
	c2 := NewCompleter("test-key", "claude-3-haiku-20240307")
	if c2.modelName != "claude-3-haiku-20240307" {
		t.Errorf("model name = %q; want the explicit choice", c2.modelName)
	}
}

func TestDefaultClient_RequiresAPIKey(t *testing.T) {
	client := &defaultClient{modelName: "claude-3-haiku-20240307"}
	if _, err := client.createMessage(context.Background(), "", nil); err == nil {
		t.Error("createMessage accepted an empty API key")
	}
}
