package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestValidatePublisherConfigRejectsMissingHTTP(t *testing.T) {
	err := PublisherConfig{
		ID:   "h1",
		Type: TypeHTTP,
	}.validate()
	if err == nil {
		t.Fatalf("expected validation error for missing http block")
	}
}

func TestLoadRegistryParsesCloudSinks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: queue
    type: SQS
    sqs:
      uri: " https://sqs.eu-west-1.amazonaws.com/1/graph "
      region: eu-west-1
      endpoint: http://localhost:4566
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:eu-west-1:1:graph
      region: eu-west-1
      access_key_id: test
      secret_access_key: test
  - id: pubsub
    type: gcp_pubsub
    gcp_pubsub:
      project_id: demo
      topic: graph-snapshots
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	queue, ok := reg.ByID("queue")
	if !ok || queue.Type != TypeSQS {
		t.Fatalf("unexpected sqs config %#v", queue)
	}
	if queue.SQS.QueueURL != "https://sqs.eu-west-1.amazonaws.com/1/graph" || queue.SQS.Endpoint != "http://localhost:4566" {
		t.Fatalf("unexpected sqs settings %#v", queue.SQS)
	}

	topic, _ := reg.ByID("topic")
	if topic.SNS == nil || topic.SNS.Region != "eu-west-1" || topic.SNS.AccessKeyID != "test" {
		t.Fatalf("unexpected sns settings %#v", topic.SNS)
	}

	pubsub, _ := reg.ByID("pubsub")
	if pubsub.GCP == nil || pubsub.GCP.Topic != "graph-snapshots" {
		t.Fatalf("unexpected pubsub settings %#v", pubsub.GCP)
	}
}

func TestValidatePublisherConfigRejectsIncompleteCloudSinks(t *testing.T) {
	cases := []PublisherConfig{
		{ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{TopicARN: "arn"}},
		{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{AWSConfig: AWSConfig{Region: "eu-west-1"}}},
		{ID: "g", Type: TypeGCPPubSub, GCP: &GCPPubSubConfig{ProjectID: "demo"}},
		{ID: "k", Type: "kafka"},
	}
	for _, cfg := range cases {
		if err := cfg.validate(); err == nil {
			t.Fatalf("expected validation error for %s", cfg.ID)
		}
	}
}

func TestValidateHTTPSinkSettings(t *testing.T) {
	cases := map[string]HTTPPublisherConfig{
		"unknown placeholder": {URL: "https://hooks.example.com/{tenant}/graph"},
		"bodiless method":     {URL: "https://hooks.example.com/graph", Method: "get"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := PublisherConfig{ID: "h", Type: TypeHTTP, HTTP: &c}.normalized()
			if err := cfg.validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	ok := PublisherConfig{ID: "h", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://hooks.example.com/{kind}/{job_id}"}}.normalized()
	if err := ok.validate(); err != nil {
		t.Fatalf("expected routed url to validate, got %v", err)
	}
	if ok.HTTP.Method != "POST" || ok.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("expected defaults applied, got %#v", ok.HTTP)
	}
}

func TestValidateAWSStaticKeysComeInPairs(t *testing.T) {
	cfg := PublisherConfig{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{
		QueueURL:  "https://sqs.eu-west-1.amazonaws.com/1/graph",
		AWSConfig: AWSConfig{Region: "eu-west-1", AccessKeyID: "only-id"},
	}}
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected error when secret key is missing")
	}
}

func TestNewConfigRegistryRejectsDuplicates(t *testing.T) {
	hook := &HTTPPublisherConfig{URL: "https://hooks.example.com"}
	_, err := NewConfigRegistry([]PublisherConfig{
		{ID: "a", Type: TypeHTTP, HTTP: hook},
		{ID: " a ", Type: TypeHTTP, HTTP: hook},
	})
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
