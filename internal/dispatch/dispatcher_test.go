package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/modelserve/internal/function"
	"github.com/ekisa-team/modelserve/internal/model"
)

type greetArgs struct {
	Name   string `json:"name"`
	Suffix string `json:"suffix" default:"!"`
}

type echoModel struct{}

func (echoModel) Greet(args greetArgs) string { return args.Name + args.Suffix }

func (echoModel) Fail(args greetArgs) error { return errors.New("model exploded") }

func (echoModel) Panic(args greetArgs) string { panic("unexpected state") }

func (echoModel) FunctionDoc(name string) string {
	if name == "Greet" {
		return "Greet returns a greeting."
	}
	return ""
}

type sleepArgs struct {
	Millis int `json:"millis"`
}

type slowModel struct{}

func (slowModel) Sleep(ctx context.Context, args sleepArgs) (string, error) {
	select {
	case <-time.After(time.Duration(args.Millis) * time.Millisecond):
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func testRegistry(t *testing.T) *model.Registry {
	t.Helper()

	reg := model.NewRegistry()
	require.NoError(t, reg.Register("echo", echoModel{}, function.AutoDiscover()))
	require.NoError(t, reg.Register("slow", slowModel{}, function.AutoDiscover()))

	return reg
}

func TestDispatch_Success(t *testing.T) {
	d := New(testRegistry(t))

	res := d.Dispatch(context.Background(), Request{
		Model:      "echo",
		Function:   "Greet",
		Parameters: map[string]any{"name": "Ada"},
	})

	require.True(t, res.OK())
	assert.Equal(t, "Ada!", res.Value)
	assert.Equal(t, "echo", res.Model)
	assert.Equal(t, map[string]any{"name": "Ada"}, res.Parameters)
}

func TestDispatch_ModelNotFound(t *testing.T) {
	d := New(testRegistry(t))

	res := d.Dispatch(context.Background(), Request{Model: "missing", Function: "Greet"})

	require.False(t, res.OK())
	assert.Equal(t, KindModelNotFound, res.Error.Kind)
	assert.Equal(t, []string{"echo", "slow"}, res.Error.Context["available_models"])
	assert.Nil(t, res.Value)
}

func TestDispatch_FunctionNotFound(t *testing.T) {
	d := New(testRegistry(t))

	res := d.Dispatch(context.Background(), Request{Model: "echo", Function: "Missing"})

	require.False(t, res.OK())
	assert.Equal(t, KindFunctionNotFound, res.Error.Kind)
	assert.Equal(t, []string{"Fail", "Greet", "Panic"}, res.Error.Context["available_functions"])
}

func TestDispatch_ParameterMismatch(t *testing.T) {
	d := New(testRegistry(t))

	res := d.Dispatch(context.Background(), Request{
		Model:      "echo",
		Function:   "Greet",
		Parameters: map[string]any{"suffix": "?"},
	})

	require.False(t, res.OK())
	assert.Equal(t, KindParameterMismatch, res.Error.Kind)
	assert.Equal(t, `(name string, suffix string = "!")`, res.Error.Context["expected_signature"])

	res = d.Dispatch(context.Background(), Request{
		Model:      "echo",
		Function:   "Greet",
		Parameters: map[string]any{"name": "Ada", "shout": true},
	})

	require.False(t, res.OK())
	assert.Equal(t, KindParameterMismatch, res.Error.Kind)
}

func TestDispatch_BindErrorIsParameterMismatch(t *testing.T) {
	d := New(testRegistry(t))

	res := d.Dispatch(context.Background(), Request{
		Model:      "slow",
		Function:   "Sleep",
		Parameters: map[string]any{"millis": "not a number"},
	})

	require.False(t, res.OK())
	assert.Equal(t, KindParameterMismatch, res.Error.Kind)
}

func TestDispatch_ExecutionError(t *testing.T) {
	d := New(testRegistry(t))

	res := d.Dispatch(context.Background(), Request{
		Model:      "echo",
		Function:   "Fail",
		Parameters: map[string]any{"name": "Ada"},
	})

	require.False(t, res.OK())
	assert.Equal(t, KindExecutionError, res.Error.Kind)
	assert.Contains(t, res.Error.Message, "model exploded")
}

func TestDispatch_RecoversPanic(t *testing.T) {
	d := New(testRegistry(t))

	res := d.Dispatch(context.Background(), Request{
		Model:      "echo",
		Function:   "Panic",
		Parameters: map[string]any{"name": "Ada"},
	})

	require.False(t, res.OK())
	assert.Equal(t, KindExecutionError, res.Error.Kind)
	assert.Contains(t, res.Error.Message, "panicked")
}

func TestDispatch_Timeout(t *testing.T) {
	d := New(testRegistry(t), WithTimeout(20*time.Millisecond))

	res := d.Dispatch(context.Background(), Request{
		Model:      "slow",
		Function:   "Sleep",
		Parameters: map[string]any{"millis": 500},
	})

	require.False(t, res.OK())
	assert.Equal(t, KindTimeout, res.Error.Kind)
}

func TestDispatch_DefaultModel(t *testing.T) {
	d := New(testRegistry(t), WithDefaultModel("echo"))

	res := d.Dispatch(context.Background(), Request{
		Function:   "Greet",
		Parameters: map[string]any{"name": "Ada", "suffix": "?"},
	})

	require.True(t, res.OK())
	assert.Equal(t, "echo", res.Model)
	assert.Equal(t, "Ada?", res.Value)
}

func TestDispatch_CallsAreIndependent(t *testing.T) {
	d := New(testRegistry(t))

	first := d.Dispatch(context.Background(), Request{Model: "echo", Function: "Missing"})
	require.False(t, first.OK())

	second := d.Dispatch(context.Background(), Request{
		Model:      "echo",
		Function:   "Greet",
		Parameters: map[string]any{"name": "Ada"},
	})
	require.True(t, second.OK())
	assert.Equal(t, "Ada!", second.Value)
}

func TestListModels(t *testing.T) {
	d := New(testRegistry(t))

	list := d.ListModels()
	require.Len(t, list, 2)
	assert.Equal(t, []string{"Fail", "Greet", "Panic"}, list["echo"].Functions)
	assert.Equal(t, "dispatch.echoModel", list["echo"].Type)
}

func TestFunctionSignature(t *testing.T) {
	d := New(testRegistry(t))

	sig, failure := d.FunctionSignature("echo", "Greet")
	require.Nil(t, failure)
	assert.Equal(t, "Greet", sig.Name)
	assert.Equal(t, `(name string, suffix string = "!")`, sig.Signature)
	assert.Equal(t, []string{"name", "suffix"}, sig.Parameters)
	assert.Equal(t, "Greet returns a greeting.", sig.Doc)

	// Undocumented functions fall back to a stock line.
	sig, failure = d.FunctionSignature("echo", "Fail")
	require.Nil(t, failure)
	assert.Equal(t, "No documentation available", sig.Doc)

	_, failure = d.FunctionSignature("nope", "Greet")
	require.NotNil(t, failure)
	assert.Equal(t, KindModelNotFound, failure.Kind)

	_, failure = d.FunctionSignature("echo", "Nope")
	require.NotNil(t, failure)
	assert.Equal(t, KindFunctionNotFound, failure.Kind)
}
