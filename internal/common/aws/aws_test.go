package aws

import (
	"context"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type mockSES struct {
	input *ses.SendEmailInput
	err   error
}

func (m *mockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{MessageId: awssdk.String("ses-1")}, nil
}

type mockSNS struct {
	input *sns.PublishInput
	err   error
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{MessageId: awssdk.String("sns-1")}, nil
}

// ==========================
// Sender Tests
// ==========================

func TestEmailSender_Send(t *testing.T) {
	client := &mockSES{}
	id, err := NewEmailSender(client, "noreply@creative-score-hub.com").Send(context.Background(), "maker@example.org", "Approved", "Congratulations")
	require.NoError(t, err)

	assert.Equal(t, "ses-1", id)
	assert.Equal(t, []string{"maker@example.org"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "noreply@creative-score-hub.com", awssdk.ToString(client.input.Source))
	assert.Equal(t, "Approved", awssdk.ToString(client.input.Message.Subject.Data))
}

func TestEmailSender_WrapsErrors(t *testing.T) {
	cause := errors.New("throttled")
	_, err := NewEmailSender(&mockSES{err: cause}, "a@b.c").Send(context.Background(), "x@y.z", "s", "b")
	assert.ErrorIs(t, err, cause)
}

func TestSMSSender_SenderID(t *testing.T) {
	client := &mockSNS{}
	_, err := NewSMSSender(client, "FUNDING").Send(context.Background(), "+15550100", "Your application was approved")
	require.NoError(t, err)

	assert.Equal(t, "+15550100", awssdk.ToString(client.input.PhoneNumber))
	assert.Equal(t, "FUNDING", awssdk.ToString(client.input.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))

	client = &mockSNS{}
	_, err = NewSMSSender(client, "").Send(context.Background(), "+15550100", "hi")
	require.NoError(t, err)
	_, hasSender := client.input.MessageAttributes["AWS.SNS.SMS.SenderID"]
	assert.False(t, hasSender)
}
