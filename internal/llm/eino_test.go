package llm

import (
	"context"
	"errors"
	"testing"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	reply     string
	chunks    []string
	err       error
	input     []*schema.Message
	maxTokens int
}

func (f *fakeChatModel) record(input []*schema.Message, opts []einoModel.Option) {
	f.input = input
	common := einoModel.GetCommonOptions(nil, opts...)
	if common.MaxTokens != nil {
		f.maxTokens = *common.MaxTokens
	}
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	f.record(input, opts)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	f.record(input, opts)
	if f.err != nil {
		return nil, f.err
	}
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, c := range f.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func TestEinoClient_Complete(t *testing.T) {
	fake := &fakeChatModel{reply: "Newton's first law is inertia."}
	client := NewEinoClient("qwen", fake)

	text, err := client.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "tutor"},
		{Role: RoleUser, Content: "first law?"},
		{Role: RoleAssistant, Content: "..."},
	}, 500)
	require.NoError(t, err)

	assert.Equal(t, "Newton's first law is inertia.", text)
	assert.Equal(t, 500, fake.maxTokens)
	require.Len(t, fake.input, 3)
	assert.Equal(t, schema.System, fake.input[0].Role)
	assert.Equal(t, schema.User, fake.input[1].Role)
	assert.Equal(t, schema.Assistant, fake.input[2].Role)
}

func TestEinoClient_Errors(t *testing.T) {
	client := NewEinoClient("ark", &fakeChatModel{err: errors.New("connection refused")})
	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, 10)

	var unavail *ErrProviderUnavailable
	require.ErrorAs(t, err, &unavail)
	assert.Equal(t, "ark", unavail.Provider)

	client = NewEinoClient("ark", &fakeChatModel{reply: ""})
	_, err = client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "x"}}, 10)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestEinoClient_Stream(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"Force ", "", "equals ", "mass times acceleration."}}
	client := NewEinoClient("qwen", fake)

	var deltas []string
	text, err := client.Stream(context.Background(), []Message{{Role: RoleUser, Content: "second law?"}}, 500, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Force equals mass times acceleration.", text)
	assert.Equal(t, []string{"Force ", "equals ", "mass times acceleration."}, deltas)
	assert.Equal(t, 500, fake.maxTokens)
}

func TestNewArkClient_RequiresEndpoint(t *testing.T) {
	_, err := NewArkClient(context.Background(), "key", Options{})
	assert.Error(t, err)

	_, err = NewArkClient(context.Background(), "", Options{Model: "ep-1"})
	assert.Error(t, err)
}
