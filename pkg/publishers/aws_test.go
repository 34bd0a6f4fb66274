package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSQSPublisherSendSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "q", typ: TypeSQS, queueURL: "https://example.com/queue", client: client, log: noopLogger{}}

	err := pub.Publish(context.Background(), Event{ResourceID: "item", State: map[string]any{"a": 1}})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["resource_id"]
	if !ok || aws.ToString(attr.StringValue) != "item" || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("resource_id attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"resource_id":"item"`) {
		t.Fatalf("MessageBody missing resource_id: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestSQSPublisherFIFOGroupsByResource(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "q", typ: TypeSQS, queueURL: "https://example.com/changes.fifo", client: client, log: noopLogger{}}
	applied := time.Unix(0, 42)

	if err := pub.Publish(context.Background(), Event{ResourceID: "item", Loading: true, AppliedAt: applied}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if got := aws.ToString(client.input.MessageGroupId); got != "item" {
		t.Fatalf("MessageGroupId = %s", got)
	}
	if got := aws.ToString(client.input.MessageDeduplicationId); got != "item-42" {
		t.Fatalf("MessageDeduplicationId = %s", got)
	}
	if got := aws.ToString(client.input.MessageAttributes["loading"].StringValue); got != "true" {
		t.Fatalf("loading attribute = %s", got)
	}
}

func TestSQSPublisherStandardQueueHasNoGroup(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "q", queueURL: "https://example.com/queue", client: client, log: noopLogger{}}
	if err := pub.Publish(context.Background(), Event{ResourceID: "item"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input.MessageGroupId != nil || client.input.MessageDeduplicationId != nil {
		t.Fatalf("standard queue should not carry FIFO fields")
	}
}

func TestSQSPublisherSendError(t *testing.T) {
	pub := &sqsPublisher{id: "q", client: &fakeSQSClient{err: errors.New("boom")}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), Event{ResourceID: "item"}); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestSNSPublisherSendSuccess(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{id: "s", typ: TypeSNS, topicARN: "arn:aws:sns:::topic", client: client, log: noopLogger{}}

	if err := pub.Publish(context.Background(), Event{ResourceID: "item"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["resource_id"]
	if !ok || aws.ToString(attr.StringValue) != "item" {
		t.Fatalf("resource_id attribute missing or wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"resource_id":"item"`) {
		t.Fatalf("Message missing resource_id: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSPublisherFIFOTopic(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{id: "s", topicARN: "arn:aws:sns:eu-west-1:1:changes.fifo", client: client, log: noopLogger{}}
	if err := pub.Publish(context.Background(), Event{ResourceID: "item", AppliedAt: time.Unix(0, 7)}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if aws.ToString(client.input.MessageGroupId) != "item" || aws.ToString(client.input.MessageDeduplicationId) != "item-7" {
		t.Fatalf("unexpected FIFO fields %#v", client.input)
	}
}

func TestSNSPublisherSendError(t *testing.T) {
	pub := &snsPublisher{id: "s", client: &fakeSNSClient{err: errors.New("boom")}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), Event{ResourceID: "item"}); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestLoadAWSConfigUsesStaticCredentials(t *testing.T) {
	cfg, err := loadAWSConfig(context.Background(), "eu-west-1", "AKID", "SECRET")
	if err != nil {
		t.Fatalf("loadAWSConfig: %v", err)
	}
	if cfg.Region != "eu-west-1" {
		t.Fatalf("Region = %s", cfg.Region)
	}
	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if creds.AccessKeyID != "AKID" || creds.SecretAccessKey != "SECRET" {
		t.Fatalf("unexpected credentials %#v", creds)
	}
}
